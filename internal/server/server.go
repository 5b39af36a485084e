// Package server is the HTTP transport: it parses investigation requests,
// hands them to the orchestrator, and forwards the event stream to the
// caller as newline-delimited JSON.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"veritas/internal/config"
	"veritas/internal/logging"
	"veritas/internal/store"
	"veritas/internal/swarm"
)

// HistoryLister lists recorded verdicts. Nil disables the endpoint.
type HistoryLister interface {
	Recent(limit int) ([]store.Entry, error)
}

// Server wires the gin engine to the investigation engine.
type Server struct {
	engine  *gin.Engine
	orch    *swarm.Orchestrator
	history HistoryLister
	cfg     config.ServerConfig
	maxList int
}

// New creates the HTTP server.
func New(cfg *config.Config, orch *swarm.Orchestrator, history HistoryLister) *Server {
	g := gin.New()
	g.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) == 0 ||
		(len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type"}
	g.Use(cors.New(corsCfg))

	s := &Server{
		engine:  g,
		orch:    orch,
		history: history,
		cfg:     cfg.Server,
		maxList: cfg.History.MaxListed,
	}
	s.attachRoutes()
	return s
}

func (s *Server) attachRoutes() {
	s.engine.GET("/", s.handleStatus)
	s.engine.POST("/investigate", s.handleInvestigate)
	s.engine.GET("/history", s.handleHistory)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully, letting in-flight streams finish.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.ListenAddr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		logging.Get(logging.CategoryServer).Infow("listening", "addr", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Veritas Protocol Online"})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	entries, err := s.history.Recent(s.maxList)
	if err != nil {
		logging.Get(logging.CategoryServer).Errorw("history query failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"verdicts": entries})
}
