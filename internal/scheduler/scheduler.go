package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"HKQuant/internal/agent"
	"HKQuant/internal/model"
	"HKQuant/internal/notifier"
	"HKQuant/internal/recorder"
	"HKQuant/internal/sentiment"
)

// Job names a scheduled task.
type Job string

const (
	JobDailyReport Job = "daily_report"
	JobHibor       Job = "hibor"
	JobSentiment   Job = "sentiment"
)

// RSI levels that add an alert line to the daily report.
const (
	oversoldRSI   = 30
	overboughtRSI = 85
)

type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*agent.Report, error)
}

type HiborSource interface {
	Hibor(ctx context.Context, limit int) ([]model.HiborRate, error)
}

type ForumSource interface {
	Threads(ctx context.Context, category, page int) ([]model.ForumPost, error)
}

// Sender delivers a message, retrying on failure.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks. Jobs whose source is nil are skipped.
type Scheduler struct {
	Cron          *cron.Cron
	Analyst       Analyzer
	Hibor         HiborSource
	Forum         ForumSource
	ForumCategory int
	Notifier      Sender
	Recorder      recorder.Recorder
	Symbols       []string

	// OnReport, when set, receives every report of the daily job.
	OnReport func(*agent.Report)

	ctx context.Context
	log *zap.Logger
}

// HongKong is the zone cron specs are evaluated in, so "16:30" means after
// the HKEX close wherever the process runs.
var HongKong = hongKongLocation()

func hongKongLocation() *time.Location {
	if loc, err := time.LoadLocation("Asia/Hong_Kong"); err == nil {
		return loc
	}
	return time.FixedZone("HKT", 8*60*60) // no DST since 1979
}

// NewScheduler creates a Scheduler whose jobs run under ctx. A panicking
// job is logged and does not take the process down.
func NewScheduler(ctx context.Context, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(HongKong),
			cron.WithChain(cron.Recover(cron.DefaultLogger)),
		),
		Recorder: recorder.NewNoopRecorder(),
		ctx:      ctx,
		log:      log.Named("scheduler"),
	}
}

// RegisterAll registers the daily report, HIBOR and sentiment jobs. An
// empty spec leaves that job unscheduled.
func (s *Scheduler) RegisterAll(dailyCron, hiborCron, sentimentCron string) error {
	specs := []struct {
		job  Job
		spec string
	}{
		{JobDailyReport, dailyCron},
		{JobHibor, hiborCron},
		{JobSentiment, sentimentCron},
	}
	for _, sp := range specs {
		if sp.spec == "" {
			continue
		}
		job := sp.job
		if _, err := s.Cron.AddFunc(sp.spec, func() {
			if err := s.RunNow(job); err != nil {
				s.log.Error("scheduled job failed", zap.String("job", string(job)), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("register %s task: %w", job, err)
		}
		s.log.Info("job registered", zap.String("job", string(job)), zap.String("spec", sp.spec))
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes job immediately (manual trigger or run-on-start).
func (s *Scheduler) RunNow(job Job) error {
	switch job {
	case JobDailyReport:
		return s.dailyReport()
	case JobHibor:
		return s.hiborTask()
	case JobSentiment:
		return s.sentimentTask()
	default:
		return fmt.Errorf("unknown job %q", job)
	}
}

func (s *Scheduler) dailyReport() error {
	if s.Analyst == nil {
		return fmt.Errorf("%s: no analyst configured", JobDailyReport)
	}
	s.log.Info("running daily report", zap.Strings("symbols", s.Symbols))
	var failed []string
	for _, sym := range s.Symbols {
		rep, err := s.Analyst.Analyze(s.ctx, sym)
		if err != nil {
			s.log.Error("daily analysis", zap.String("symbol", sym), zap.Error(err))
			s.trySend(fmt.Sprintf("❌ %s analysis failed: %s", html.EscapeString(sym), html.EscapeString(err.Error())))
			failed = append(failed, sym)
			continue
		}
		if err := s.Recorder.RecordAnalysis(&recorder.AnalysisSnapshot{
			Indicators: rep.Indicators, Signal: rep.Signal, Rating: string(rep.Rating),
		}); err != nil {
			s.log.Error("record analysis", zap.Error(err))
		}
		if s.OnReport != nil {
			s.OnReport(rep)
		}
		s.trySend(notifier.FormatAnalysisReport(rep) + rsiAlert(rep.Indicators))
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s: %d of %d symbols failed: %s",
			JobDailyReport, len(failed), len(s.Symbols), strings.Join(failed, ", "))
	}
	return nil
}

func rsiAlert(ind *model.MarketIndicators) string {
	switch {
	case ind == nil:
		return ""
	case ind.DailyRSI < oversoldRSI:
		return fmt.Sprintf("\n🎣 <b>Oversold</b> daily RSI %.0f", ind.DailyRSI)
	case ind.DailyRSI > overboughtRSI || ind.WeeklyRSI > overboughtRSI:
		return fmt.Sprintf("\n⚠️ <b>Overbought</b> RSI daily %.0f | weekly %.0f, consider taking profit",
			ind.DailyRSI, ind.WeeklyRSI)
	default:
		return ""
	}
}

func (s *Scheduler) hiborTask() error {
	if s.Hibor == nil {
		return fmt.Errorf("%s: no HIBOR source configured", JobHibor)
	}
	s.log.Info("running HIBOR scrape")
	rates, err := s.Hibor.Hibor(s.ctx, 5)
	if err != nil {
		return fmt.Errorf("scrape hibor: %w", err)
	}
	if err := s.Recorder.RecordHibor(rates); err != nil {
		s.log.Error("record hibor", zap.Error(err))
	}
	s.trySend(notifier.FormatHibor(rates))
	return nil
}

func (s *Scheduler) sentimentTask() error {
	if s.Forum == nil {
		return fmt.Errorf("%s: no forum source configured", JobSentiment)
	}
	s.log.Info("running sentiment scan", zap.Int("category", s.ForumCategory))
	posts, err := s.Forum.Threads(s.ctx, s.ForumCategory, 1)
	if err != nil {
		return fmt.Errorf("fetch forum threads: %w", err)
	}
	s.trySend(notifier.FormatSentiment(sentiment.Aggregate(posts), 5))
	return nil
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.ctx, text, 3); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
