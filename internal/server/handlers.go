package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/recorder"
	"HKQuant/internal/strategy"
	"HKQuant/internal/taskboard"
)

const indicatorDays = 300

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " is not configured"})
}

func symbolParam(c *gin.Context) string {
	return strings.ToUpper(c.Param("symbol"))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"time":       time.Now().UTC(),
		"ws_clients": s.Hub.Clients(),
	})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	if s.deps.Analyst == nil {
		unavailable(c, "analysis")
		return
	}
	sym := symbolParam(c)
	rep, err := s.deps.Analyst.Analyze(c.Request.Context(), sym)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Recorder.RecordAnalysis(&recorder.AnalysisSnapshot{
		Indicators: rep.Indicators, Signal: rep.Signal, Rating: string(rep.Rating),
	}); err != nil {
		s.log.Error("record analysis", zap.Error(err))
	}
	if err := s.Hub.Broadcast("analysis", rep); err != nil {
		s.log.Warn("broadcast analysis", zap.Error(err))
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleIndicators(c *gin.Context) {
	if s.deps.Market == nil {
		unavailable(c, "market data")
		return
	}
	series, err := s.deps.Market.Series(c.Request.Context(), symbolParam(c), indicatorDays)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	ind := s.deps.Market.Indicators(series)
	signal := strategy.Evaluate(ind)
	signal.TriggerType = model.TriggerDashboard
	c.JSON(http.StatusOK, gin.H{"indicators": ind, "signal": signal})
}

// queryInt reads an integer query parameter, falling back to def.
func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

func (s *Server) handleOptimize(c *gin.Context) {
	if s.deps.Market == nil {
		unavailable(c, "market data")
		return
	}
	var rng optimizer.Range
	var err error
	if rng.Start, err = queryInt(c, "start", s.deps.MARange.Start); err == nil {
		if rng.End, err = queryInt(c, "end", s.deps.MARange.End); err == nil {
			rng.Step, err = queryInt(c, "step", s.deps.MARange.Step)
		}
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := rng.Values(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sym := symbolParam(c)
	series, err := s.deps.Market.Series(c.Request.Context(), sym, s.deps.HistoryDays)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	rep, err := optimizer.OptimizeMA(model.Closes(series.DailyBars), rng, s.deps.RiskFree)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Recorder.RecordOptimization(recorder.NewOptimizationRecord(sym, rep)); err != nil {
		s.log.Error("record optimization", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"symbol": sym, "range": rng, "report": rep})
}

func (s *Server) handleHibor(c *gin.Context) {
	if s.deps.Hibor == nil {
		unavailable(c, "HIBOR source")
		return
	}
	limit, err := queryInt(c, "limit", 10)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	rates, err := s.deps.Hibor.Hibor(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Recorder.RecordHibor(rates); err != nil {
		s.log.Error("record hibor", zap.Error(err))
	}
	c.JSON(http.StatusOK, rates)
}

func taskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, taskboard.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, taskboard.ErrInvalidStatus), errors.Is(err, taskboard.ErrEmptyTitle):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleListTasks(c *gin.Context) {
	if s.deps.Tasks == nil {
		unavailable(c, "task board")
		return
	}
	tasks, err := s.deps.Tasks.List(c.Request.Context(), taskboard.Filter{Status: taskboard.Status(c.Query("status"))})
	if err != nil {
		taskError(c, err)
		return
	}
	if tasks == nil {
		tasks = []taskboard.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	if s.deps.Tasks == nil {
		unavailable(c, "task board")
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := s.deps.Tasks.Add(c.Request.Context(), req.Title, req.Description, req.Priority)
	if err != nil {
		taskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

type moveTaskRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) handleMoveTask(c *gin.Context) {
	if s.deps.Tasks == nil {
		unavailable(c, "task board")
		return
	}
	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := taskboard.ParseStatus(req.Status)
	if err != nil {
		taskError(c, err)
		return
	}
	ctx := c.Request.Context()
	t, err := s.deps.Tasks.Resolve(ctx, c.Param("id"))
	if err != nil {
		taskError(c, err)
		return
	}
	if t, err = s.deps.Tasks.Move(ctx, t.ID, status); err != nil {
		taskError(c, err)
		return
	}
	if err := s.Hub.Broadcast("task", t); err != nil {
		s.log.Warn("broadcast task", zap.Error(err))
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if s.deps.Tasks == nil {
		unavailable(c, "task board")
		return
	}
	ctx := c.Request.Context()
	t, err := s.deps.Tasks.Resolve(ctx, c.Param("id"))
	if err != nil {
		taskError(c, err)
		return
	}
	if err := s.deps.Tasks.Delete(ctx, t.ID); err != nil {
		taskError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleScores(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Scores.List())
}
