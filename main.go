package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apirest "github.com/kasuganosora/mazechase/api/rest"
	"github.com/kasuganosora/mazechase/api/sse"
	apows "github.com/kasuganosora/mazechase/api/ws"
	"github.com/kasuganosora/mazechase/config"
	"github.com/kasuganosora/mazechase/game/world"
	mw "github.com/kasuganosora/mazechase/middleware"
	"github.com/kasuganosora/mazechase/pubsub"
	"github.com/kasuganosora/mazechase/scheduler"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- PubSub ----
	ps, err := pubsub.New(cfg.Cache)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	defer ps.Close()
	if cfg.Cache.RedisAddr != "" {
		logger.Info("PubSub initialized", zap.String("backend", "redis"), zap.String("addr", cfg.Cache.RedisAddr))
	} else {
		logger.Info("PubSub initialized", zap.String("backend", "local"))
	}

	// ---- Sessions ----
	wm := world.NewManager(cfg.SessionOptions(), cfg.Sim.MaxSessions, ps, logger)
	defer wm.StopAll()

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	scheduler.RegisterSessionJobs(sched, wm, cfg.Sim.IdleTimeout, time.Minute, 5*time.Minute)

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	apows.RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	limit := rate.Limit(cfg.Security.RateLimitRPS)
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(ctx, limit, cfg.Security.RateLimitBurst))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": wm.Count()})
	})

	sessions := r.Group("/api/sessions", mw.RateLimitBy(ctx, mw.SessionKey, limit, cfg.Security.RateLimitBurst))
	apirest.NewSessionHandler(wm, cfg.Mode(), logger).Register(sessions)

	// ---- SSE ----
	sseH := sse.NewHandler(wm, ps, logger)
	sessions.GET("/:id/events", sseH.ServeSSE)

	// ---- WebSocket ----
	wsH := apows.NewHandler(wm, ps, cfg.Security, wsRouter, logger)
	r.GET("/ws/sessions/:id", wsH.ServeWS)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	// Ending the sessions first closes their SSE and WS streams.
	wm.StopAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
