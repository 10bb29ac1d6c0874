package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/config"
	"github.com/strivio/contesthub-backend/internal/middleware"
	"github.com/strivio/contesthub-backend/internal/service"
	ws "github.com/strivio/contesthub-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live contest activity to the owning educator over
// WebSocket. All activity flows through the contest's Redis pub/sub channel,
// so any number of watchers and API replicas see the same stream.
type MonitorHandler struct {
	rdb            *redis.Client
	contestService *service.ContestService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, contestService *service.ContestService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		contestService: contestService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ContestMonitorStream godoc
// WS /ws/v1/educator/contests/:contest_id/monitor?token=...
func (h *MonitorHandler) ContestMonitorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, ok := contestID(c)
	if !ok {
		return
	}

	// Ownership check before the upgrade; after it we can only talk WS.
	contest, err := h.contestService.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contest not found"})
		return
	}
	if contest.Owner.ID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the contest owner"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("educator_id", claims.UserID).
		Str("contest_id", id.String()).
		Logger()
	wsLog.Info().Msg("Monitor connected")

	sub := h.rdb.Subscribe(c.Request.Context(), config.CacheKey.ContestMonitorChannel(id.String()))
	defer sub.Close()

	// Reader drains pings and detects disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				return
			}
			if msg.Action == ws.ActionPing {
				ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-done:
			wsLog.Info().Msg("Monitor disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, ws.MonitorEvent{
				Event:   ws.EventMonitor,
				Payload: msg.Payload,
			}); err != nil {
				wsLog.Debug().Err(err).Msg("Monitor write failed")
				return
			}
		}
	}
}
