package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"HKQuant/internal/agent"
	"HKQuant/internal/collector"
	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/taskboard"
)

type stubAnalyst struct {
	rep *agent.Report
	err error
}

func (s stubAnalyst) Analyze(_ context.Context, symbol string) (*agent.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	rep := *s.rep
	rep.Symbol = symbol
	return &rep, nil
}

type stubHibor []model.HiborRate

func (s stubHibor) Hibor(context.Context, int) ([]model.HiborRate, error) { return s, nil }

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	b := New(nil)
	b.Market = collector.NewCollector(&collector.MockFetcher{Price: 100}, nil)
	b.Symbols = []string{"0700.HK"}
	b.MARange = optimizer.Range{Start: 5, End: 30, Step: 5}
	b.HistoryDays = 200
	return b
}

func TestHandle_HelpAndUnknown(t *testing.T) {
	b := newTestBot(t)
	for _, text := range []string{"", "/help", "/nope", "hello"} {
		if got := b.Handle(context.Background(), text); got != helpText {
			t.Errorf("%q: expected help text, got %q", text, got)
		}
	}
}

func TestHandle_StripsBotName(t *testing.T) {
	b := newTestBot(t)
	got := b.Handle(context.Background(), "/scores@HKQuantBot")
	if !strings.Contains(got, "No matches") {
		t.Errorf("unexpected reply %q", got)
	}
}

func TestHandle_Report(t *testing.T) {
	b := newTestBot(t)
	b.Analyst = stubAnalyst{rep: &agent.Report{Rating: agent.Buy, Score: 0.4, Rationale: []string{"trend up"}}}

	got := b.Handle(context.Background(), "/report 0005.hk")
	if !strings.Contains(got, "0005.HK") || !strings.Contains(got, "BUY") {
		t.Errorf("unexpected reply %q", got)
	}

	got = b.Handle(context.Background(), "/report")
	if !strings.Contains(got, "0700.HK") {
		t.Errorf("expected default symbol, got %q", got)
	}

	b.Analyst = stubAnalyst{err: errors.New("feed <down>")}
	got = b.Handle(context.Background(), "/report 0700.HK")
	if !strings.HasPrefix(got, "❌") || !strings.Contains(got, "&lt;down&gt;") {
		t.Errorf("expected escaped error, got %q", got)
	}
}

func TestHandle_Unavailable(t *testing.T) {
	b := New(nil)
	for _, cmd := range []string{"/report 0700.HK", "/rsi 0700.HK", "/hibor", "/tasks", "/task add x y"} {
		if got := b.Handle(context.Background(), cmd); !strings.Contains(got, "not available") {
			t.Errorf("%s: expected unavailable reply, got %q", cmd, got)
		}
	}
}

func TestHandle_RSIAndOptimize(t *testing.T) {
	b := newTestBot(t)
	got := b.Handle(context.Background(), "/rsi")
	if !strings.Contains(got, "0700.HK") || !strings.Contains(got, "RSI daily") {
		t.Errorf("unexpected /rsi reply %q", got)
	}
	got = b.Handle(context.Background(), "/optimize 0700.HK")
	if !strings.Contains(got, "0700.HK") || !strings.Contains(got, "optimization") {
		t.Errorf("unexpected /optimize reply %q", got)
	}
}

func TestHandle_Hibor(t *testing.T) {
	b := newTestBot(t)
	b.Hibor = stubHibor{{Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Overnight: 4.1, Month1: 4.5}}
	got := b.Handle(context.Background(), "/hibor")
	if !strings.Contains(got, "2024-05-02") || !strings.Contains(got, "4.10") {
		t.Errorf("unexpected reply %q", got)
	}
}

func TestHandle_Tasks(t *testing.T) {
	b := newTestBot(t)
	board, err := taskboard.Open(filepath.Join(t.TempDir(), "tasks.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { board.Close() })
	b.Tasks = board
	ctx := context.Background()

	if got := b.Handle(ctx, "/task add scrape HKEX quotes"); !strings.Contains(got, "scrape HKEX quotes") {
		t.Fatalf("unexpected add reply %q", got)
	}
	tasks, err := board.List(ctx, taskboard.Filter{})
	if err != nil || len(tasks) != 1 {
		t.Fatalf("List = %v, %v", tasks, err)
	}
	id := tasks[0].ID[:8]

	if got := b.Handle(ctx, "/task move "+id+" doing"); !strings.Contains(got, "doing") {
		t.Errorf("unexpected move reply %q", got)
	}
	if got := b.Handle(ctx, "/task move "+id+" blocked"); !strings.HasPrefix(got, "❌") {
		t.Errorf("expected invalid status error, got %q", got)
	}
	if got := b.Handle(ctx, "/task done "+id); !strings.Contains(got, "done") {
		t.Errorf("unexpected done reply %q", got)
	}
	if got := b.Handle(ctx, "/tasks"); !strings.Contains(got, "DONE") {
		t.Errorf("unexpected list reply %q", got)
	}
	if got := b.Handle(ctx, "/task rm "+id); !strings.Contains(got, "removed") {
		t.Errorf("unexpected rm reply %q", got)
	}
	if got := b.Handle(ctx, "/task rm "+id); !strings.Contains(got, "not found") {
		t.Errorf("expected not found, got %q", got)
	}
}

func TestHandle_Scoreboard(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()

	if got := b.Handle(ctx, "/match Kitchee Eastern"); !strings.Contains(got, "Kitchee 0 – 0 Eastern") {
		t.Fatalf("unexpected kick-off reply %q", got)
	}
	id := b.Scores.List()[0].ID

	if got := b.Handle(ctx, "/goal "+id+" kitchee 2"); !strings.Contains(got, "2 – 0") {
		t.Errorf("unexpected goal reply %q", got)
	}
	if got := b.Handle(ctx, "/goal "+id+" away"); !strings.Contains(got, "2 – 1") {
		t.Errorf("unexpected goal reply %q", got)
	}
	if got := b.Handle(ctx, "/goal "+id+" Lee two"); !strings.Contains(got, "invalid points") {
		t.Errorf("expected invalid points, got %q", got)
	}
	if got := b.Handle(ctx, "/end "+id); !strings.Contains(got, "Kitchee wins") {
		t.Errorf("unexpected end reply %q", got)
	}
	if got := b.Handle(ctx, "/goal "+id+" home"); !strings.HasPrefix(got, "❌") {
		t.Errorf("expected finished error, got %q", got)
	}
	if got := b.Handle(ctx, "/match Kitchee kitchee"); !strings.HasPrefix(got, "❌") {
		t.Errorf("expected invalid teams error, got %q", got)
	}
}
