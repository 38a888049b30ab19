package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/spinel/internal/config"
	"github.com/agenthands/spinel/internal/core"
	"github.com/agenthands/spinel/internal/core/refine"
	"github.com/agenthands/spinel/internal/flags"
	"github.com/agenthands/spinel/internal/store"
)

type Server struct {
	Config *config.Config
	Store  store.Store
	Log    *zap.Logger
}

func NewServer(cfg *config.Config, s store.Store, log *zap.Logger) *Server {
	return &Server{Config: cfg, Store: s, Log: log}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/uniq", s.Uniq)
	r.POST("/select", s.Select)
	r.GET("/stats", s.Stats)
	r.GET("/healthz", s.Health)

	return r
}

type UniqRequest struct {
	Source             string   `json:"source"`
	Target             string   `json:"target"`
	Contains           []string `json:"contains"`
	Skip               []string `json:"skip"`
	MaxSize            int      `json:"max_size"`
	PartialOccupancies *bool    `json:"partial_occupancies"`
	CreateTarget       bool     `json:"create_target"`
	DryRun             bool     `json:"dry_run"`
	Limit              int      `json:"limit"`
	Strategy           string   `json:"strategy"`
	NoSpaceGroup       bool     `json:"no_spacegroup"`
}

func (s *Server) Uniq(c *gin.Context) {
	var req UniqRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Source == "" || req.Target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source and target are required"})
		return
	}

	engine, err := core.FromConfig(s.Config, s.Store, s.Log, core.Options{
		Strategy:     req.Strategy,
		NoSpaceGroup: req.NoSpaceGroup,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := core.ReconcileOptions{
		Source: req.Source,
		Target: req.Target,
		Filter: store.Filter{
			ContainsElements:   req.Contains,
			SkipElements:       req.Skip,
			MaxSites:           req.MaxSize,
			PartialOccupancies: req.PartialOccupancies,
			Limit:              req.Limit,
		},
		CreateTarget: req.CreateTarget,
		DryRun:       req.DryRun,
	}

	ws, report, err := engine.Reconcile(c.Request.Context(), opts)
	if err != nil {
		s.Log.Error("reconciliation failed", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if !req.DryRun {
		if err := engine.Apply(c.Request.Context(), ws); err != nil {
			s.Log.Error("failed to apply write-set", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"report": report, "write_set": ws})
}

type SelectRequest struct {
	Collection string `json:"collection"`
	Apply      bool   `json:"apply"`
}

func (s *Server) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Collection == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection is required"})
		return
	}

	table, err := flags.Load(s.Config.Refine.FlagDir, s.Config.Refine.Priority)
	if err != nil {
		s.Log.Error("failed to load quality flags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	refiner := refine.NewRefiner(s.Store, table, s.Config.Refine.Priority, s.Log)
	ws, replacements, err := refiner.Plan(c.Request.Context(), req.Collection)
	if err != nil {
		s.Log.Error("refinement planning failed", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if req.Apply {
		if err := s.Store.Apply(c.Request.Context(), ws); err != nil {
			s.Log.Error("failed to apply replacements", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"replacements": replacements, "write_set": ws, "applied": req.Apply})
}

func (s *Server) Stats(c *gin.Context) {
	collection := c.Query("collection")
	if collection == "" {
		count, err := s.Store.CountAll(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
		return
	}

	count, err := s.Store.CountCollection(c.Request.Context(), collection)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"collection": collection, "count": count})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
