package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/vaultflow/internal/core/domain"
	"github.com/vietddude/vaultflow/internal/engine"
	"github.com/vietddude/vaultflow/internal/infra/storage"
	"github.com/vietddude/vaultflow/internal/scheduler"
)

const ownerHeader = "X-Owner-Address"

// Config holds HTTP server settings.
type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
	}
}

// HealthFunc reports backing-store liveness for /healthz.
type HealthFunc func(ctx context.Context) error

// Server exposes the engine over HTTP.
type Server struct {
	cfg    Config
	engine *engine.Engine
	health HealthFunc
	log    *slog.Logger
	srv    *http.Server
}

func NewServer(cfg Config, eng *engine.Engine, health HealthFunc) *Server {
	s := &Server{
		cfg:    cfg,
		engine: eng,
		health: health,
		log:    slog.Default().With("component", "api"),
	}
	s.srv = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.router(),
	}
	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/vaults", s.handleCreate)
		v1.GET("/vaults/:id", s.handleGet)
		v1.DELETE("/vaults/:id", s.handleCancel)
		v1.POST("/vaults/:id/execute", s.handleExecute)
		v1.POST("/vaults/execute-batch", s.handleExecuteBatch)
		v1.GET("/owners/:owner/vaults", s.handleOwnerVaults)
	}
	return r
}

// Start runs the listener until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("API server listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

type createVaultRequest struct {
	BaseAsset       string `json:"base_asset" binding:"required"`
	TargetAsset     string `json:"target_asset" binding:"required"`
	IntervalSeconds uint64 `json:"interval_seconds" binding:"required"`
	Amount          uint64 `json:"amount" binding:"required"`
	AutoCompound    *bool  `json:"auto_compound"`
}

func (s *Server) handleCreate(c *gin.Context) {
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + ownerHeader + " header"})
		return
	}

	var req createVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	autoCompound := true
	if req.AutoCompound != nil {
		autoCompound = *req.AutoCompound
	}

	id, err := s.engine.Create(c.Request.Context(), domain.VaultConfig{
		Owner:        owner,
		BaseAsset:    req.BaseAsset,
		TargetAsset:  req.TargetAsset,
		Interval:     time.Duration(req.IntervalSeconds) * time.Second,
		Amount:       req.Amount,
		AutoCompound: autoCompound,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vault_id": id})
}

func (s *Server) handleGet(c *gin.Context) {
	record, err := s.engine.GetInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrVaultNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vault not found"})
			return
		}
		s.log.Error("Failed to read vault", "vault", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", domain.EncodeRecord(record))
}

func (s *Server) handleCancel(c *gin.Context) {
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + ownerHeader + " header"})
		return
	}

	cancelled, err := s.engine.Cancel(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		s.log.Error("Failed to cancel vault", "vault", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (s *Server) handleExecute(c *gin.Context) {
	// Callable by anyone: the engine's own due and status guards decide
	// whether anything actually happens.
	if err := s.engine.ExecuteOne(c.Request.Context(), c.Param("id")); err != nil {
		s.log.Error("Manual execution failed", "vault", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

type executeBatchRequest struct {
	VaultIDs string `json:"vault_ids" binding:"required"`
}

func (s *Server) handleExecuteBatch(c *gin.Context) {
	var req executeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	budget := scheduler.NewBudget(engine.MaxBatchSize)
	if err := s.engine.ExecuteBatch(c.Request.Context(), engine.SplitBatchArg(req.VaultIDs), budget); err != nil {
		s.log.Error("Manual batch execution failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleOwnerVaults(c *gin.Context) {
	ids, err := s.engine.UserVaults(c.Request.Context(), c.Param("owner"))
	if err != nil {
		s.log.Error("Failed to list owner vaults", "owner", c.Param("owner"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"vault_ids": ids})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
