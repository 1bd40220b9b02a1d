package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vireo/internal/cache"
	apperrors "vireo/internal/errors"
	"vireo/internal/models"
	"vireo/internal/search"
	"vireo/internal/service"
)

type Handlers struct {
	services     *service.Services
	valkeyClient *cache.ValkeyClient
	eventIndex   *search.EventIndex
}

func NewHandlers(services *service.Services, valkeyClient *cache.ValkeyClient, eventIndex *search.EventIndex) *Handlers {
	return &Handlers{
		services:     services,
		valkeyClient: valkeyClient,
		eventIndex:   eventIndex,
	}
}

// respondError maps a domain error onto an HTTP status plus the stable
// reason code. Contention losses are 409: the request was well-formed,
// the resource just went to someone else.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindContention:
		status = http.StatusConflict
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindGateway:
		status = http.StatusBadGateway
	}

	c.Error(err)
	c.JSON(status, models.ErrorResponse{
		Code:    apperrors.CodeOf(err),
		Message: apperrors.MessageOf(err),
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Code:    "invalid_request",
		Message: err.Error(),
	})
}
