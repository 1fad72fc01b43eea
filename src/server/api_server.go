package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nifty-dashboard/src/config"
	"nifty-dashboard/src/dashboard"
	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
	"nifty-dashboard/src/symbols"
	"nifty-dashboard/src/utils"

	"github.com/gin-gonic/gin"
)

// StatsSource exposes quote cache counters to the health endpoint.
type StatsSource interface {
	Stats() models.MCacheStats
}

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

var _ interfaces.IDataExchanger = (*APIServer)(nil)

type APIServer struct {
	Config    *config.Config
	Logger    *logger.Logger
	Sessions  *dashboard.SessionRegistry
	Directory *symbols.SymbolDirectory
	Quotes    StatsSource
	Markets   *utils.MarketScheduler
	Memory    *utils.MemoryManager

	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients, owned by the hub loop
	clients    map[*Client]struct{}
	broadcast  chan *sessionMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// Time budget for one full output refresh
	RefreshTimeout time.Duration

	stateMutex   sync.RWMutex
	connections  int
	subscribers  map[string]int
	latestUpdate int64
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *config.Config, sessions *dashboard.SessionRegistry, directory *symbols.SymbolDirectory, quotes StatsSource, markets *utils.MarketScheduler, memory *utils.MemoryManager, log *logger.Logger) *APIServer {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	timeout := cfg.RequestTimeout() * time.Duration(cfg.Network.MaxRetries+1) * 2
	if timeout <= 0 {
		timeout = time.Minute
	}

	s := &APIServer{
		Config:    cfg,
		Logger:    log,
		Sessions:  sessions,
		Directory: directory,
		Quotes:    quotes,
		Markets:   markets,
		Memory:    memory,
		engine:    gin.New(),
		clients:   make(map[*Client]struct{}),
		// Buffered so request handlers never wait on the hub
		broadcast:      make(chan *sessionMessage, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		subscribers:    make(map[string]int),
		RefreshTimeout: timeout,
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), s.cors())
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.handleWebsockets()
	return s
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) allowedOrigin(origin string) bool {
	for _, prefix := range s.Config.Dashboard.AllowedOrigins {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

func (s *APIServer) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && s.allowedOrigin(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)

	api.GET("/symbols", s.searchSymbols)
	api.GET("/symbols/all", s.allSymbols)

	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id", s.getSession)
	api.DELETE("/sessions/:id", s.deleteSession)
	api.PUT("/sessions/:id/inputs/:input", s.setInput)
	api.GET("/sessions/:id/outputs", s.getOutputs)
	api.GET("/sessions/:id/outputs/:name", s.getOutput)

	api.GET("/market/status", s.marketStatus)

	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until Stop is called.
func (s *APIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}
