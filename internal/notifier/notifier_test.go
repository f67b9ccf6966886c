package notifier

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"HKQuant/internal/agent"
	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/scoreboard"
	"HKQuant/internal/sentiment"
	"HKQuant/internal/taskboard"
)

type fakeTelegram struct {
	mu      sync.Mutex
	sent    []map[string]string
	updates string
	fail    bool

	unauthorized bool
	polls        int
}

func (f *fakeTelegram) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if f.fail {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
				return
			}
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			f.mu.Lock()
			f.sent = append(f.sent, body)
			f.mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			f.mu.Lock()
			f.polls++
			f.mu.Unlock()
			if f.unauthorized {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
				return
			}
			w.Write([]byte(f.updates))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestNotifier(t *testing.T, fake *fakeTelegram) *TelegramNotifier {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "1001", "", nil)
	n.BaseURL = srv.URL
	return n
}

func TestSend(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestNotifier(t, fake)
	if err := n.Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("sent = %d", len(fake.sent))
	}
	msg := fake.sent[0]
	if msg["chat_id"] != "1001" || msg["text"] != "<b>hi</b>" || msg["parse_mode"] != "HTML" {
		t.Errorf("payload = %v", msg)
	}
}

func TestSend_APIError(t *testing.T) {
	n := newTestNotifier(t, &fakeTelegram{fail: true})
	err := n.Send(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestSendWithRetry_NoRetriesReturnsLastError(t *testing.T) {
	n := newTestNotifier(t, &fakeTelegram{fail: true})
	start := time.Now()
	err := n.SendWithRetry(context.Background(), "x", 0)
	if err == nil || !strings.Contains(err.Error(), "all 1 retries exhausted") {
		t.Fatalf("err = %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("should not back off after the final attempt")
	}
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	n := newTestNotifier(t, &fakeTelegram{fail: true})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := n.SendWithRetry(ctx, "x", 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestPollOnce_DispatchesAndReplies(t *testing.T) {
	fake := &fakeTelegram{updates: `{"ok":true,"result":[
{"update_id":7,"message":{"text":" /help ","chat":{"id":1001}}},
{"update_id":8,"message":{"text":"","chat":{"id":1001}}},
{"update_id":9},
{"update_id":10,"message":{"text":"/tasks","chat":{"id":999}}}]}`}
	n := newTestNotifier(t, fake)

	var got []string
	next, err := n.pollOnce(context.Background(), 0, func(_ context.Context, cmd string) string {
		got = append(got, cmd)
		return "reply to " + cmd
	})
	if err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if next != 11 {
		t.Errorf("next offset = %d, want 11", next)
	}
	if len(got) != 1 || got[0] != "/help" {
		t.Errorf("handled = %v, commands from other chats must be ignored", got)
	}
	if len(fake.sent) != 1 || fake.sent[0]["chat_id"] != "1001" || fake.sent[0]["text"] != "reply to /help" {
		t.Errorf("sent = %v", fake.sent)
	}
}

func TestPollOnce_RejectedToken(t *testing.T) {
	fake := &fakeTelegram{unauthorized: true}
	n := newTestNotifier(t, fake)
	next, err := n.pollOnce(context.Background(), 5, func(context.Context, string) string {
		t.Error("handler should not run")
		return ""
	})
	if err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if next != 5 {
		t.Errorf("offset moved to %d", next)
	}
}

func TestStartPolling_BacksOffOnError(t *testing.T) {
	fake := &fakeTelegram{unauthorized: true}
	n := newTestNotifier(t, fake)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	n.StartPolling(ctx, func(context.Context, string) string { return "" })

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.polls != 1 {
		t.Errorf("getUpdates called %d times, want 1 before the back-off", fake.polls)
	}
}

func TestFormatSignal(t *testing.T) {
	ind := &model.MarketIndicators{Symbol: "0700.HK", CurrentPrice: 300, MA200: 250}
	sig := &model.TradeSignal{
		Factors:    []model.FactorScore{{Name: "MA200 deviation", RawScore: -1.5, Weight: 0.35, Weighted: -0.525, Commentary: "+20.0%"}},
		TotalScore: -0.525,
		Tier:       model.InvestmentTier{Label: "Reduce", Multiplier: 0.5},
		WarningMsg: "RSI > 85",
	}
	out := FormatSignal(ind, sig)
	for _, want := range []string{"0700.HK", "+20.0%", "Reduce 0.50x", "RSI &gt; 85"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatOptimization(t *testing.T) {
	rep := &optimizer.Report{
		Strategy: "price_vs_ma",
		Found:    true,
		Best:     optimizer.Candidate{Params: optimizer.Params{Period: 20}, Sharpe: 1.23},
		Candidates: []optimizer.Candidate{
			{Params: optimizer.Params{Period: 10}, Sharpe: math.Inf(-1)},
			{Params: optimizer.Params{Period: 20}, Sharpe: 1.23},
		},
	}
	out := FormatOptimization("0700.HK", rep, 5)
	if !strings.Contains(out, "period=20 Sharpe 1.23") || !strings.Contains(out, "n/a") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Index(out, "period=20   ") > strings.Index(out, "period=10") {
		t.Errorf("best candidate should be listed first:\n%s", out)
	}
	rep.Found = false
	if out := FormatOptimization("X", rep, 5); !strings.Contains(out, "Not enough history") {
		t.Errorf("unexpected output for empty sweep:\n%s", out)
	}
}

func TestFormatHibor(t *testing.T) {
	if FormatHibor(nil) != "No HIBOR data." {
		t.Error("empty HIBOR message")
	}
	out := FormatHibor([]model.HiborRate{{Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Overnight: 4.51, Month3: 5.1}})
	if !strings.Contains(out, "2024-01-05  4.51") || !strings.Contains(out, " 5.10") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestFormatScoreboardAndTasks(t *testing.T) {
	out := FormatScoreboard([]scoreboard.Match{{ID: "abc", Home: "Kitchee", Away: "Lee Man", HomeScore: 2, AwayScore: 1, Finished: true}})
	if !strings.Contains(out, "Kitchee 2 – 1 Lee Man [FT]") {
		t.Errorf("scoreboard:\n%s", out)
	}
	tasks := FormatTasks([]taskboard.Task{
		{ID: "1234567890", Title: "a<b", Status: taskboard.StatusDoing, Priority: 2},
		{ID: "x", Title: "todo item", Status: taskboard.StatusTodo, Priority: 3},
	})
	if !strings.Contains(tasks, "12345678") || !strings.Contains(tasks, "a&lt;b") {
		t.Errorf("tasks:\n%s", tasks)
	}
	if strings.Index(tasks, "TODO") > strings.Index(tasks, "DOING") {
		t.Errorf("columns out of order:\n%s", tasks)
	}
}

func TestFormatAnalysisAndSentiment(t *testing.T) {
	out := FormatAnalysisReport(&agent.Report{Symbol: "0005.HK", Rating: agent.Buy, Score: 0.42,
		Rationale: []string{"Valuation UNDERVALUED"}, Warnings: []string{"forum down"}})
	if !strings.Contains(out, "BUY") || !strings.Contains(out, "• Valuation UNDERVALUED") || !strings.Contains(out, "forum down") {
		t.Errorf("analysis:\n%s", out)
	}
	s := sentiment.Summary{Posts: 3, Score: 0.5, Bullish: 2, Neutral: 1, Mentions: map[string]int{"0700": 3, "0005": 1, "9988": 3}}
	out = FormatSentiment(s, 2)
	if !strings.Contains(out, "BULLISH") || !strings.Contains(out, "0700 × 3") || strings.Contains(out, "0005") {
		t.Errorf("sentiment:\n%s", out)
	}
}
