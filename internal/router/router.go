package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/strivio/contesthub-backend/internal/config"
	"github.com/strivio/contesthub-backend/internal/handler"
	"github.com/strivio/contesthub-backend/internal/middleware"
	"github.com/strivio/contesthub-backend/internal/response"
	"github.com/strivio/contesthub-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Participant *handler.ParticipantHandler
	Contest     *handler.ContestHandler
	Monitor     *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/participant/login", handlers.Auth.ParticipantLogin)
		auth.POST("/educator/login", handlers.Auth.EducatorLogin)

		// Authenticated profile routes
		auth.POST("/participant/logout", middleware.RequireParticipantJWT(authService), handlers.Auth.ParticipantLogout)
		auth.GET("/participant/me", middleware.RequireParticipantJWT(authService), handlers.Auth.GetParticipantProfile)
	}

	// ─── 2. Participant Group (JWT + Single Device) ────────────────────
	participantAPI := router.Group("/api/v1/contests")
	participantAPI.Use(
		middleware.RequireParticipantJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		participantAPI.GET("/:contest_id", handlers.Participant.GetContest)
		participantAPI.POST("/:contest_id/register", handlers.Participant.Register)
		participantAPI.POST("/:contest_id/start", handlers.Participant.Start)
		participantAPI.PUT("/:contest_id/answers", handlers.Participant.SaveAnswer)
		participantAPI.PUT("/:contest_id/code", handlers.Participant.SaveCode)
		participantAPI.PUT("/:contest_id/navigation", handlers.Participant.UpdateNavigation)
		participantAPI.POST("/:contest_id/proctor-events", handlers.Participant.ReportProctorEvent)
		participantAPI.POST("/:contest_id/submit", handlers.Participant.Submit)
		participantAPI.POST("/:contest_id/force-submit", handlers.Participant.ForceSubmit)
		participantAPI.GET("/:contest_id/status", handlers.Participant.Status)
		participantAPI.GET("/:contest_id/session", handlers.Participant.GetSession)
		participantAPI.GET("/:contest_id/leaderboard", handlers.Participant.Leaderboard)
	}

	// ─── 3. Educator Group (JWT) ───────────────────────────────────────
	educatorAPI := router.Group("/api/v1/educator")
	educatorAPI.Use(middleware.RequireEducatorJWT(authService))
	{
		educatorAPI.GET("/contests", handlers.Contest.List)
		educatorAPI.POST("/contests", handlers.Contest.Create)
		educatorAPI.GET("/contests/:contest_id", handlers.Contest.Get)
		educatorAPI.PUT("/contests/:contest_id", handlers.Contest.Update)
		educatorAPI.DELETE("/contests/:contest_id", handlers.Contest.Delete)
		educatorAPI.POST("/contests/:contest_id/publish", handlers.Contest.Publish)

		educatorAPI.GET("/contests/:contest_id/questions", handlers.Contest.ListQuestions)
		educatorAPI.POST("/contests/:contest_id/questions", handlers.Contest.AddQuestion)
		educatorAPI.POST("/contests/:contest_id/problems", handlers.Contest.AddProblem)

		educatorAPI.GET("/contests/:contest_id/results", handlers.Contest.Results)
		educatorAPI.POST("/contests/:contest_id/results/publish", handlers.Contest.PublishResults)

		educatorAPI.POST("/participants/:id/reset-session", handlers.Auth.ResetParticipantSession)
	}

	// ─── 4. WebSocket Group (Educator WS Auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireEducatorWSAuth(authService))
	{
		ws.GET("/educator/contests/:contest_id/monitor", handlers.Monitor.ContestMonitorStream)
	}

	return router
}
