package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/auth"
	"github.com/vovakirdan/timetable-server/internal/config"
	"github.com/vovakirdan/timetable-server/internal/core"
	"github.com/vovakirdan/timetable-server/internal/service/timetables"
	"github.com/vovakirdan/timetable-server/internal/store"
)

// NewServer builds an HTTP server with the REST API and the real-time endpoint.
func NewServer(
	hub *core.Hub,
	authService *auth.Service,
	ttService *timetables.Service,
	userStore store.UserStore,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	registerValidators(logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	authHandlers := NewAuthHandlers(authService, logger)
	userHandlers := NewUserHandlers(userStore, logger)
	ttHandlers := NewTimetableHandlers(ttService, logger)
	blockHandlers := NewScheduleBlockHandlers(ttService, logger)
	wsHandler := NewWSHandler(hub, cfg, logger)

	requireAuth := AuthMiddleware(authService, logger)

	api := router.Group("/api/v1")
	{
		api.GET("/stats", statsHandler(hub))

		api.POST("/users/signup", authHandlers.Signup)
		api.POST("/users/login/password", authHandlers.LoginPassword)
		api.POST("/users/login", authHandlers.LoginProvider)
		api.GET("/users/me", requireAuth, userHandlers.GetMe)
		api.PATCH("/users/me", requireAuth, userHandlers.UpdateMe)
		api.GET("/colors", userHandlers.ListColors)

		api.POST("/timetables", requireAuth, ttHandlers.CreateTimetable)
		api.GET("/timetables/me", requireAuth, ttHandlers.ListMyTimetables)
		api.GET("/timetables/:id", ttHandlers.GetTimetable)
		api.PATCH("/timetables/:id", requireAuth, ttHandlers.UpdateTimetable)
		api.GET("/timetables/:id/scheduleblocks", ttHandlers.ListBlocks)
		api.GET("/timetables/:id/scheduleblocks/me", requireAuth, ttHandlers.ListMyBlocks)
		api.DELETE("/timetables/:id/scheduleblocks/me", requireAuth, ttHandlers.DeleteMyBlocks)
		api.DELETE("/timetables/:id/scheduleblocks/me/days/:day", requireAuth, ttHandlers.DeleteMyBlocksByDay)

		api.POST("/scheduleblocks", requireAuth, blockHandlers.CreateBlock)
		api.PATCH("/scheduleblocks", requireAuth, blockHandlers.UpdateBlocks)
		api.GET("/scheduleblocks/:id", blockHandlers.GetBlock)
		api.DELETE("/scheduleblocks/:id", requireAuth, blockHandlers.DeleteBlock)

		api.GET("/ws/:timetable_id", wsHandler.Handle)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

func statsHandler(hub *core.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, hub.Stats())
	}
}
