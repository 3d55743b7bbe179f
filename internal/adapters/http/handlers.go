package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type roomsHandler struct {
	hub *app.Hub
}

type createRoomRequest struct {
	Language string `json:"language" binding:"omitempty,max=32"`
}

type createRoomResponse struct {
	RoomID    domain.RoomID   `json:"roomId"`
	Language  domain.Language `json:"language"`
	CreatedAt time.Time       `json:"created_at"`
}

type roomResponse struct {
	RoomID      domain.RoomID   `json:"roomId"`
	Language    domain.Language `json:"language"`
	CodeContent string          `json:"codeContent"`
	UserCount   int             `json:"userCount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type roomStatusResponse struct {
	RoomID    domain.RoomID `json:"roomId"`
	UserCount int           `json:"userCount"`
	HasCode   bool          `json:"hasCode"`
}

func (h *roomsHandler) create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	room, err := h.hub.Rooms.Create(req.Language)
	switch {
	case errors.Is(err, domain.ErrUnsupportedLanguage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, domain.ErrCapacity):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "maximum number of rooms reached"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	r := room.Room()
	c.JSON(http.StatusCreated, createRoomResponse{RoomID: r.ID, Language: r.Language, CreatedAt: r.CreatedAt})
}

func (h *roomsHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.hub.Rooms.List()})
}

func (h *roomsHandler) get(c *gin.Context) {
	room, err := h.hub.Rooms.Get(domain.RoomID(c.Param("roomId")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	r := room.Room()
	c.JSON(http.StatusOK, roomResponse{
		RoomID:      r.ID,
		Language:    r.Language,
		CodeContent: r.Document,
		UserCount:   room.MemberCount(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	})
}

func (h *roomsHandler) status(c *gin.Context) {
	room, err := h.hub.Rooms.Get(domain.RoomID(c.Param("roomId")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, roomStatusResponse{
		RoomID:    room.Room().ID,
		UserCount: room.MemberCount(),
		HasCode:   room.Room().Document != "",
	})
}

func (h *roomsHandler) health(c *gin.Context) {
	stats := h.hub.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"active_rooms":      stats.ActiveRooms,
		"total_connections": stats.TotalConnections,
	})
}
