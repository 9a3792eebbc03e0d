package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/nabekah/farmkonnect-production-sub012/internal/api"
	"github.com/nabekah/farmkonnect-production-sub012/internal/auth"
	"github.com/nabekah/farmkonnect-production-sub012/internal/config"
	"github.com/nabekah/farmkonnect-production-sub012/internal/hub"
	"github.com/nabekah/farmkonnect-production-sub012/internal/presence"
	"github.com/nabekah/farmkonnect-production-sub012/internal/store"
	"github.com/nabekah/farmkonnect-production-sub012/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/gateway.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting gateway",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"addr", cfg.Server.Addr,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	pool, err := store.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	st := store.New(pool)

	logger.Info("database connected")

	// Handshake credential extractor
	var extractor auth.Extractor = auth.UnverifiedExtractor{}
	if cfg.Auth.Verify {
		extractor = auth.JWTExtractor{Secret: []byte(cfg.Auth.Secret)}
		logger.Info("credential signature verification enabled")
	}

	// Optional presence mirror
	var opts []hub.Option
	if cfg.Redis.Addr != "" {
		rdb, err := presence.Open(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("presence mirror unavailable, continuing without it", "error", err)
		} else {
			defer rdb.Close()
			opts = append(opts, hub.WithPresence(presence.NewTracker(rdb, cfg.Redis.TTL, logger)))
			logger.Info("presence mirror connected", "addr", cfg.Redis.Addr)
		}
	}

	hubCfg := hub.DefaultConfig()
	hubCfg.HeartbeatInterval = cfg.Heartbeat.Interval
	hubCfg.WriteTimeout = cfg.Server.WriteTimeout
	hubCfg.ReadBufferSize = cfg.Server.ReadBufferSize
	hubCfg.WriteBufferSize = cfg.Server.WriteBufferSize
	hubCfg.MaxMessageBytes = cfg.Server.MaxMessageBytes

	h := hub.New(hubCfg, extractor, st, logger, opts...)
	notifier := hub.NewNotifier(h.Broadcaster(), logger)

	if err := h.Start(ctx); err != nil {
		logger.Error("failed to start hub", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, h, notifier, st, pool, logger)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gateway listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		logger.Info("shutting down...")
		if err := h.Stop(shutdownCtx); err != nil {
			logger.Warn("hub shutdown", "error", err)
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("gateway exited", "error", err)
		os.Exit(1)
	}

	logger.Info("gateway stopped")
}

// registerRoutes wires the realtime handshake, the REST resources the
// polling fallback consumes, and health.
func registerRoutes(r *gin.Engine, h *hub.Hub, notifier *hub.Notifier, st *store.Store, pool *pgxpool.Pool, logger *slog.Logger) {
	r.GET("/ws", h.HandleWS)
	r.GET("/health", healthHandler(h, pool))

	farms := r.Group("/api/farms/:id")
	farms.GET("/tasks", listHandler(logger, func(ctx context.Context, farmID int64) (any, error) {
		tasks, err := st.ListTasks(ctx, farmID)
		return api.TasksResponse{Tasks: tasks}, err
	}))
	farms.GET("/activities", listHandler(logger, func(ctx context.Context, farmID int64) (any, error) {
		activities, err := st.ListActivities(ctx, farmID)
		return api.ActivitiesResponse{Activities: activities}, err
	}))
	farms.GET("/expenses", listHandler(logger, func(ctx context.Context, farmID int64) (any, error) {
		expenses, err := st.ListExpenses(ctx, farmID)
		return api.ExpensesResponse{Expenses: expenses}, err
	}))
	farms.GET("/revenues", listHandler(logger, func(ctx context.Context, farmID int64) (any, error) {
		revenues, err := st.ListRevenues(ctx, farmID)
		return api.RevenuesResponse{Revenues: revenues}, err
	}))

	farms.POST("/alerts", func(c *gin.Context) {
		farmID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid farm id"})
			return
		}
		var req api.AlertRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message required"})
			return
		}
		delivered := notifier.UrgentAlert(farmID, req.Message)
		c.JSON(http.StatusOK, api.AlertResponse{Delivered: delivered})
	})
}

// listHandler adapts a store listing into a gin handler.
func listHandler(logger *slog.Logger, list func(ctx context.Context, farmID int64) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		farmID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid farm id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		resp, err := list(ctx, farmID)
		if err != nil {
			logger.Warn("listing failed", "farm_id", farmID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// healthHandler reports database and registry health.
func healthHandler(h *hub.Hub, pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		components := gin.H{
			"connections": h.Registry().Len(),
		}

		if err := pool.Ping(ctx); err != nil {
			status = "unhealthy"
			components["postgres"] = gin.H{"status": "disconnected", "error": err.Error()}
		} else {
			components["postgres"] = "connected"
		}

		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "components": components})
	}
}
