package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dtroode/kychat-server/internal/api/http/response"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
)

const healthPingTimeout = 2 * time.Second

// ConnectionCounter reports the number of live realtime connections.
type ConnectionCounter interface {
	Count() int
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// Health reports database reachability and live connection count.
type Health struct {
	db          model.Pinger
	connections ConnectionCounter
	logger      *logger.Logger
}

func NewHealth(db model.Pinger, connections ConnectionCounter, logger *logger.Logger) *Health {
	return &Health{db: db, connections: connections, logger: logger}
}

func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	body := healthResponse{Status: "ok", Connections: h.connections.Count()}

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("Health handler: database ping failed",
			"error", err.Error())
		body.Status = "unavailable"
		response.JSON(w, http.StatusServiceUnavailable, body)
		return
	}

	response.JSON(w, http.StatusOK, body)
}
