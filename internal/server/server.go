// Package server exposes the dashboard HTTP API and its live websocket feed.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"HKQuant/internal/agent"
	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/recorder"
	"HKQuant/internal/scoreboard"
	"HKQuant/internal/taskboard"
)

type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*agent.Report, error)
}

type MarketData interface {
	Series(ctx context.Context, symbol string, days int) (*model.PriceSeries, error)
	Indicators(series *model.PriceSeries) *model.MarketIndicators
}

type HiborSource interface {
	Hibor(ctx context.Context, limit int) ([]model.HiborRate, error)
}

// Deps are the components behind the API. Routes whose dependency is nil
// answer 503.
type Deps struct {
	Analyst  Analyzer
	Market   MarketData
	Hibor    HiborSource
	Tasks    *taskboard.Board
	Scores   *scoreboard.Board
	Recorder recorder.Recorder

	MARange     optimizer.Range
	RiskFree    float64
	HistoryDays int
}

// Server is the dashboard backend.
type Server struct {
	Hub *Hub

	deps   Deps
	engine *gin.Engine
	log    *zap.Logger
}

func New(deps Deps, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Scores == nil {
		deps.Scores = scoreboard.New()
	}
	if deps.HistoryDays == 0 {
		deps.HistoryDays = 756
	}
	if deps.MARange == (optimizer.Range{}) {
		deps.MARange = optimizer.Range{Start: 5, End: 200, Step: 5}
	}
	s := &Server{
		Hub:  NewHub(log),
		deps: deps,
		log:  log.Named("server"),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/analysis/:symbol", s.handleAnalysis)
	api.GET("/indicators/:symbol", s.handleIndicators)
	api.GET("/optimize/:symbol", s.handleOptimize)
	api.GET("/hibor", s.handleHibor)
	api.GET("/tasks", s.handleListTasks)
	api.POST("/tasks", s.handleCreateTask)
	api.PATCH("/tasks/:id", s.handleMoveTask)
	api.DELETE("/tasks/:id", s.handleDeleteTask)
	api.GET("/scores", s.handleScores)

	r.GET("/ws", func(c *gin.Context) { s.Hub.ServeWS(c.Writer, c.Request) })
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
