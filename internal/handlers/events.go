package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vireo/internal/models"
)

// CreateEvent - POST /api/events
// Создать событие
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	event, err := h.services.Bookings.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	// Search is best effort: a missed document degrades listings only.
	if h.eventIndex != nil {
		if err := h.eventIndex.IndexEvent(c.Request.Context(), event); err != nil {
			slog.Error("Failed to index event", "event_id", event.ID, "error", err)
		}
	}

	c.JSON(http.StatusCreated, models.CreateEventResponse{ID: event.ID})
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "invalid_request", Message: "id must be an integer"})
		return
	}

	event, err := h.services.Bookings.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListEvents - GET /api/events
// Получить список событий, с поиском через Elasticsearch
func (h *Handlers) ListEvents(c *gin.Context) {
	query := c.Query("query")
	date := c.Query("date")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "invalid_request", Message: "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "invalid_request", Message: "pageSize must be between 1 and 100"})
		return
	}

	// Filtered listings go through Elasticsearch; the plain listing is
	// served from Postgres behind a short-lived cache.
	if (query != "" || date != "") && h.eventIndex != nil {
		events, err := h.eventIndex.Search(c.Request.Context(), query, date, page, pageSize)
		if err != nil {
			slog.Error("Event search failed, falling back to database", "error", err)
		} else {
			c.JSON(http.StatusOK, toListResponse(events))
			return
		}
	}

	if query == "" && date == "" && h.valkeyClient != nil {
		rawJSON, err := h.valkeyClient.GetEventsListRaw(c.Request.Context(), page, pageSize)
		if err == nil {
			c.Data(http.StatusOK, "application/json", rawJSON)
			return
		}
	}

	events, err := h.services.Bookings.ListEvents(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response := toListResponse(events)

	if query == "" && date == "" && h.valkeyClient != nil {
		if raw, err := json.Marshal(response); err == nil {
			h.valkeyClient.SetEventsListRaw(c.Request.Context(), page, pageSize, raw)
		}
	}

	c.JSON(http.StatusOK, response)
}

func toListResponse(events []models.Event) models.ListEventsResponse {
	response := make(models.ListEventsResponse, len(events))
	for i, event := range events {
		response[i] = models.ListEventsResponseItem{
			ID:        event.ID,
			Title:     event.Title,
			StartsAt:  event.StartsAt,
			Capacity:  event.Capacity,
			SeatsLeft: event.Capacity - event.OccupantCount,
		}
	}
	return response
}

// RegisterForEvent - POST /api/events/register
// Зарегистрировать участника события
func (h *Handlers) RegisterForEvent(c *gin.Context) {
	var req models.RegisterForEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.services.Bookings.RegisterForEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	// Keep the search document's seat counter roughly current.
	if h.eventIndex != nil {
		if event, err := h.services.Bookings.GetEvent(c.Request.Context(), req.EventID); err == nil {
			if err := h.eventIndex.IndexEvent(c.Request.Context(), event); err != nil {
				slog.Error("Failed to reindex event", "event_id", event.ID, "error", err)
			}
		}
	}

	c.JSON(http.StatusCreated, response)
}
