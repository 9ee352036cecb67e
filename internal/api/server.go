package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"support-assistant/backend/internal/ai"
	"support-assistant/backend/internal/decision"
	"support-assistant/backend/internal/photo"
	"support-assistant/backend/internal/policy"
	"support-assistant/backend/internal/reasoning"
	"support-assistant/backend/internal/search"
	"support-assistant/backend/internal/storage"
	"support-assistant/backend/internal/store"
	"support-assistant/backend/internal/support"
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	PolicyDir      string
	AllowedOrigins []string
	SilentDB       bool
	AIConfig       ai.Config
	GeminiConfig   ai.GeminiConfig
	SearchConfig   search.Config
	StorageConfig  storage.Config
	DisableAI      bool
	// AdminTokenHash is a bcrypt hash of the admin bearer token. Empty disables admin routes.
	AdminTokenHash string
	// RandSeed makes generated orders and photo analysis reproducible when non-zero.
	RandSeed int64
}

// Server wires HTTP handlers with persistence, retrieval and the support agent.
type Server struct {
	db             *store.Database
	engine         *policy.Engine
	decider        *decision.Maker
	agent          *support.Agent
	prices         *search.Client
	files          storage.Storage
	notifier       *AdminNotifier
	allowedOrigins []string
	adminHash      []byte
	aiEnabled      bool
	storageType    storage.Type
	closeAI        func()
}

// NewServer constructs the API server.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	engine, err := policy.LoadEngine(cfg.PolicyDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var gen ai.Generator
	closeAI := func() {}
	if cfg.DisableAI {
		logrus.Info("text generation disabled via configuration")
	} else {
		gen, closeAI, err = ai.NewGenerator(ctx, cfg.AIConfig, cfg.GeminiConfig)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	supervisor := ai.NewSupervisor(gen)
	responder := ai.NewSupport(gen)
	if !supervisor.Enabled() {
		logrus.Warn("no text generation provider configured, replies use fallback text")
	}

	prices, err := search.NewClient(cfg.SearchConfig)
	if errors.Is(err, search.ErrMissingCredentials) {
		logrus.Info("price search disabled - no Tavily API key configured")
	} else if err != nil {
		closeAI()
		_ = db.Close()
		return nil, fmt.Errorf("search client: %w", err)
	}

	files, err := storage.New(ctx, cfg.StorageConfig)
	if err != nil {
		closeAI()
		_ = db.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	var photoRand, orderRand *rand.Rand
	if cfg.RandSeed != 0 {
		photoRand = rand.New(rand.NewSource(cfg.RandSeed))
		orderRand = rand.New(rand.NewSource(cfg.RandSeed + 1))
	}

	decider := decision.NewMaker(engine, reasoning.NewChain(supervisor))
	notifier := NewAdminNotifier()
	agent, err := support.NewAgent(support.Deps{
		Repo:      db,
		Responder: responder,
		Prices:    prices,
		Decider:   decider,
		Photos:    photo.NewAnalyzer(photoRand),
		Files:     files,
		Orders:    support.NewOrderGenerator(orderRand),
		Events:    notifier,
	})
	if err != nil {
		closeAI()
		_ = db.Close()
		return nil, err
	}

	storageType := cfg.StorageConfig.Type
	if storageType == "" {
		storageType = storage.TypeLocal
	}

	server := &Server{
		db:             db,
		engine:         engine,
		decider:        decider,
		agent:          agent,
		prices:         prices,
		files:          files,
		notifier:       notifier,
		allowedOrigins: cfg.AllowedOrigins,
		aiEnabled:      supervisor.Enabled(),
		storageType:    storageType,
		closeAI:        closeAI,
	}
	if hash := strings.TrimSpace(cfg.AdminTokenHash); hash != "" {
		server.adminHash = []byte(hash)
	} else {
		logrus.Warn("admin routes disabled - no admin token hash configured")
	}
	return server, nil
}

// Close releases the database and provider connections.
func (s *Server) Close() error {
	if s.closeAI != nil {
		s.closeAI()
	}
	return s.db.Close()
}

// Notifier exposes the admin event stream.
func (s *Server) Notifier() *AdminNotifier {
	return s.notifier
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions/:id", s.handleGetSession)
		api.POST("/sessions/:id/messages", s.handleMessage)
		api.POST("/sessions/:id/photo", s.handlePhoto)
		api.GET("/policies", s.handleListPolicies)
		api.POST("/policies/search", s.handleSearchPolicies)
		api.POST("/decisions", s.handleDecision)
		api.GET("/orders/:id", s.handleGetOrder)
		api.GET("/tickets/:id", s.handleGetTicket)
	}

	admin := r.Group("/api/admin", s.requireAdmin)
	{
		admin.GET("/requests", s.handleListAdminRequests)
		admin.POST("/requests/:id/status", s.handleAdminStatus)
		admin.GET("/stream", s.handleAdminStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ai_enabled":      s.aiEnabled,
		"search_enabled":  s.prices.Enabled(),
		"storage":         s.storageType,
		"policy_sections": s.engine.Len(),
		"admin_enabled":   len(s.adminHash) > 0,
		"max_photo_bytes": photo.MaxUploadBytes,
	})
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
