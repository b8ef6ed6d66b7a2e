package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"gold-monitor/src/logger"
	"gold-monitor/src/models"
	"gold-monitor/src/ratelimit"
	"gold-monitor/src/security"
	"gold-monitor/src/state"
	"gold-monitor/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

type Server struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	clock  clockwork.Clock

	state   *state.AppState
	hub     *Hub
	guard   *security.AbuseGuard
	limiter *ratelimit.RateLimiter

	// Epoch second of the last successful privileged call.
	lastControlOk atomic.Int64
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(
	cfg *models.MConfig,
	st *state.AppState,
	guard *security.AbuseGuard,
	limiter *ratelimit.RateLimiter,
	clock clockwork.Clock,
	log *logger.Logger,
) *Server {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:  cfg,
		Logger:  log,
		engine:  gin.New(),
		clock:   clock,
		state:   st,
		hub:     NewHub(utils.MaxConnections, clock, log),
		guard:   guard,
		limiter: limiter,
	}

	// State publishes through the hub from now on
	st.SetBroadcaster(s.hub)

	// Every request passes the security gate before application handling
	s.engine.Use(gin.Recovery())
	s.engine.Use(security.Middleware(guard, limiter))

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.getIndex)
	s.engine.GET("/health", s.getHealth)
	s.engine.GET("/api/state", s.getState)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)

	// Privileged config mutation
	s.engine.GET("/aturTS/:value", s.setLimit)

	s.engine.NoRoute(s.catchAll)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.hub.RunHeartbeat(ctx)

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Hub exposes the fan-out hub (used by tests and the health handler).
func (s *Server) Hub() *Hub {
	return s.hub
}

// -----------------------------------------------------------------------------

// Handler exposes the routing engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *Server) getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexTemplate))
}

// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	s.Logger.Debug("Health check: %d connections, %d history entries", s.hub.Count(), s.state.HistoryLen())
	c.String(http.StatusOK, "ok")
}

// -----------------------------------------------------------------------------

func (s *Server) getState(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", s.state.GetSnapshot())
}

// -----------------------------------------------------------------------------

func (s *Server) catchAll(c *gin.Context) {
	ip := security.ClientIP(c.Request)
	s.guard.RecordFailedAttempt(ip, utils.WeightUnknownPath)
	c.String(http.StatusNotFound, "Halaman tidak ditemukan")
}

// -----------------------------------------------------------------------------
// WebSocket Handler
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s.hub, conn)
	if err := s.hub.Subscribe(client); err != nil {
		s.Logger.Warning("Connection refused: %v", err)
		conn.Close()
		return
	}

	// Seed the buffer with one full snapshot so it is always the first frame
	client.enqueue(s.state.GetSnapshot())

	go client.writePump()
	go client.readPump()
}
