package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "vireo/internal/errors"
	"vireo/internal/models"
)

// OnPaymentUpdates - POST /api/payments/notifications
// Принимать уведомления от платежного шлюза
func (h *Handlers) OnPaymentUpdates(c *gin.Context) {
	var payload models.PaymentCallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}

	err := h.services.Payments.ReconcileCallback(c.Request.Context(), &payload)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCallbackRejected) {
			respondError(c, err)
			return
		}
		slog.Error("Failed to reconcile payment callback",
			"transaction_id", payload.TransactionID, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    "internal_error",
			Message: "failed to process notification",
		})
		return
	}

	// 200 без тела: шлюз прекращает повторы
	c.Status(http.StatusOK)
}

// NotifyPaymentCompleted - GET /api/payments/success
// Браузерный редирект после успешной оплаты
func (h *Handlers) NotifyPaymentCompleted(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "invalid_request", Message: "orderId is required"})
		return
	}

	// The webhook is authoritative; the redirect is informational only.
	slog.Info("Payment success redirect", "order_id", orderID)
	c.Status(http.StatusOK)
}

// NotifyPaymentFailed - GET /api/payments/fail
func (h *Handlers) NotifyPaymentFailed(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "invalid_request", Message: "orderId is required"})
		return
	}

	slog.Info("Payment failure redirect", "order_id", orderID)
	c.Status(http.StatusOK)
}

// GetPayment - GET /api/payments/:id
func (h *Handlers) GetPayment(c *gin.Context) {
	payment, err := h.services.Payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// MarkPaymentPaid - PATCH /api/payments/:id/markPaid
// Подтвердить оплату наличными или переводом
func (h *Handlers) MarkPaymentPaid(c *gin.Context) {
	if err := h.services.Payments.MarkPaid(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// RefundPayment - POST /api/payments/refund
func (h *Handlers) RefundPayment(c *gin.Context) {
	var req models.RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.services.Payments.Refund(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}
