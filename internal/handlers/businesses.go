package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vireo/internal/models"
)

// CreateBusiness - POST /api/businesses
// Зарегистрировать бизнес
func (h *Handlers) CreateBusiness(c *gin.Context) {
	var req models.CreateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	business, err := h.services.Bookings.CreateBusiness(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, business)
}

// GetBusiness - GET /api/businesses/:id
func (h *Handlers) GetBusiness(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "invalid_request", Message: "id must be an integer"})
		return
	}

	business, err := h.services.Bookings.GetBusiness(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, business)
}
