package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vireo/internal/models"
)

// BookAppointment - POST /api/appointments
// Забронировать окно у бизнеса
func (h *Handlers) BookAppointment(c *gin.Context) {
	var req models.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.services.Bookings.BookAppointment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.valkeyClient != nil {
		date := req.WindowStart.UTC().Format("2006-01-02")
		h.valkeyClient.InvalidateAvailability(c.Request.Context(), req.BusinessID, req.ServiceID, date)
	}

	c.JSON(http.StatusCreated, response)
}

// GetAppointment - GET /api/appointments/:id
func (h *Handlers) GetAppointment(c *gin.Context) {
	appt, err := h.services.Bookings.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, appt)
}

// CancelAppointment - PATCH /api/appointments/cancel
// Отменить бронирование
func (h *Handlers) CancelAppointment(c *gin.Context) {
	var req models.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.services.Bookings.CancelAppointment(c.Request.Context(), req.AppointmentID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// ListServices - GET /api/services
// Получить каталог услуг
func (h *Handlers) ListServices(c *gin.Context) {
	services, err := h.services.Bookings.ListServices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, services)
}

// Availability - GET /api/availability
// Получить свободные окна бизнеса на день
func (h *Handlers) Availability(c *gin.Context) {
	businessID, _ := strconv.ParseInt(c.Query("business_id"), 10, 64)
	serviceID := c.Query("service_id")
	date := c.Query("date")

	if businessID == 0 || serviceID == "" || date == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    "invalid_request",
			Message: "business_id, service_id and date are required",
		})
		return
	}

	// The listing is display data; serve it from cache when possible.
	if h.valkeyClient != nil {
		rawJSON, err := h.valkeyClient.GetAvailabilityRaw(c.Request.Context(), businessID, serviceID, date)
		if err == nil {
			c.Data(http.StatusOK, "application/json", rawJSON)
			return
		}
	}

	response, err := h.services.Bookings.Availability(c.Request.Context(), businessID, serviceID, date)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.valkeyClient != nil {
		if raw, err := json.Marshal(response); err == nil {
			h.valkeyClient.SetAvailabilityRaw(c.Request.Context(), businessID, serviceID, date, raw)
		} else {
			slog.Error("Failed to marshal availability for cache", "error", err)
		}
	}

	c.JSON(http.StatusOK, response)
}
