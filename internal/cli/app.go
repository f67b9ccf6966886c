package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"HKQuant/internal/agent"
	"HKQuant/internal/collector"
	"HKQuant/internal/config"
	"HKQuant/internal/export"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/recorder"
	"HKQuant/internal/scraper"
	"HKQuant/internal/taskboard"
	"HKQuant/internal/terminal"
)

// app carries the loaded configuration and shared components of one
// command invocation.
type app struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer

	outPath string
	jsonOut bool
}

// offline reports whether the data provider works without network access,
// in which case network-only enrichments are skipped.
func (a *app) offline() bool {
	p := a.cfg.DataSource.Provider
	return p == "csv" || p == "mock"
}

func (a *app) fetcher() (collector.Fetcher, error) {
	ds := a.cfg.DataSource
	switch ds.Provider {
	case "longport":
		return collector.NewLongportFetcher(collector.LongportCredentials{
			AppKey:      ds.Longport.AppKey,
			AppSecret:   ds.Longport.AppSecret,
			AccessToken: ds.Longport.AccessToken,
		})
	case "csv":
		return collector.NewCSVFetcher(ds.CSVDir), nil
	case "mock":
		return &collector.MockFetcher{Price: 100}, nil
	default:
		return collector.NewYahooFetcher(a.cfg.Proxy), nil
	}
}

func (a *app) collector() (*collector.Collector, error) {
	f, err := a.fetcher()
	if err != nil {
		return nil, fmt.Errorf("init %s data source: %w", a.cfg.DataSource.Provider, err)
	}
	a.log.Debug("data source ready", zap.String("provider", f.Name()))
	return collector.NewCollector(f, a.log), nil
}

func (a *app) scraper() *scraper.Scraper {
	sc := a.cfg.Scraper
	return scraper.New(scraper.Options{
		Timeout:   time.Duration(sc.TimeoutSeconds) * time.Second,
		Retries:   sc.Retries,
		RetryWait: time.Duration(sc.RetryWaitMs) * time.Millisecond,
		UserAgent: sc.UserAgent,
		Proxy:     a.cfg.Proxy,
	}, scraper.Endpoints{
		HKMA:       sc.HKMAURL,
		HKEX:       sc.HKEXURL,
		LIHKG:      sc.LIHKGURL,
		FRED:       sc.FREDURL,
		FREDAPIKey: sc.FREDAPIKey,
	}, a.log)
}

func (a *app) maRange() optimizer.Range {
	o := a.cfg.Optimizer
	return optimizer.Range{Start: o.MAStart, End: o.MAEnd, Step: o.MAStep}
}

func (a *app) analyst(col *collector.Collector) *agent.Analyst {
	an := agent.NewAnalyst(col, a.log)
	an.Benchmark = a.cfg.DataSource.Benchmark
	an.RiskFree = a.cfg.Optimizer.RiskFreeRate
	an.MARange = a.maRange()
	an.HistoryDays = a.cfg.Optimizer.Days
	if !a.offline() {
		an.Fundamentals = collector.NewFundamentalsFetcher()
		an.Forum = a.scraper().LIHKG
		an.ForumCategory = a.cfg.Scraper.LIHKGCategory
	}
	return an
}

// recorder opens the SQLite history, falling back to a no-op recorder.
func (a *app) recorder() recorder.Recorder {
	if a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	if err := ensureDir(a.cfg.Database.SQLitePath); err != nil {
		a.log.Warn("create database dir failed, using noop recorder", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.log)
	if err != nil {
		a.log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return rec
}

func (a *app) taskboard() (*taskboard.Board, error) {
	if err := ensureDir(a.cfg.Database.TasksPath); err != nil {
		return nil, err
	}
	return taskboard.Open(a.cfg.Database.TasksPath, a.log)
}

func ensureDir(file string) error {
	if dir := filepath.Dir(file); dir != "." {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

func (a *app) runner() *terminal.Runner {
	t := a.cfg.Terminal
	return terminal.NewRunner(t.AllowedCommands, time.Duration(t.TimeoutSeconds)*time.Second, t.Retries, a.log)
}

// emit writes v to --out (JSON, or CSV through csvFn when the path ends in
// .csv) and prints either JSON (--json) or the rendered view.
func (a *app) emit(v any, csvFn func(io.Writer) error, render func() string) error {
	if a.outPath != "" {
		if export.IsCSV(a.outPath) {
			if csvFn == nil {
				return fmt.Errorf("CSV output is not supported for this command")
			}
			if err := export.WriteCSV(a.outPath, csvFn); err != nil {
				return err
			}
		} else if err := export.WriteJSON(a.outPath, v); err != nil {
			return err
		}
		a.log.Info("output written", zap.String("path", a.outPath))
	}
	if a.jsonOut {
		data, err := export.MarshalPretty(v)
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		_, err = a.out.Write(data)
		return err
	}
	_, err := fmt.Fprintln(a.out, render())
	return err
}
