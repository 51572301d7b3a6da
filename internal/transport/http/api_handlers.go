package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairroom-server/internal/core"
)

// APIHandlers provides the plain HTTP endpoints.
type APIHandlers struct {
	broker *core.Broker
	log    *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(broker *core.Broker, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		broker: broker,
		log:    logger,
	}
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	TotalRooms       int          `json:"totalRooms"`
	TotalConnections int          `json:"totalConnections"`
	RoomDetails      []RoomDetail `json:"roomDetails"`
}

// RoomDetail summarizes one room.
type RoomDetail struct {
	Code         string    `json:"code"`
	Members      int       `json:"members"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Health reports liveness.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats reports room and connection counts.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	stats := h.broker.Stats()

	resp := StatsResponse{
		TotalRooms:       len(stats.Rooms),
		TotalConnections: stats.Connections,
		RoomDetails:      make([]RoomDetail, 0, len(stats.Rooms)),
	}
	for _, r := range stats.Rooms {
		resp.RoomDetails = append(resp.RoomDetails, RoomDetail{
			Code:         r.Code,
			Members:      r.MemberCount,
			CreatedAt:    r.CreatedAt,
			LastActivity: r.LastActivity,
		})
	}
	c.JSON(http.StatusOK, resp)
}
