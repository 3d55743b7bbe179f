package http

import (
	"context"

	"github.com/dkeye/Pair/internal/adapters/signal"
	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func SetupRouter(ctx context.Context, cfg *config.Config, hub *app.Hub) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(SecurityHeaders())
	r.Use(CORS(cfg))

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("PairSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	rooms := &roomsHandler{hub: hub}
	r.GET("/health", rooms.health)

	limiter := NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	go pruneLoop(ctx, limiter, cfg.RateLimitWindow)

	api := r.Group("/api", RateLimit(limiter))
	api.POST("/rooms", rooms.create)
	api.GET("/rooms", rooms.list)
	api.GET("/rooms/:roomId", rooms.get)
	api.GET("/rooms/:roomId/status", rooms.status)

	ctrl := signal.NewSignalWSController(hub, signal.OptionsFromConfig(cfg))
	r.GET("/ws/:roomId", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
