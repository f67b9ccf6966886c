package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"HKQuant/internal/config"
)

func writeConfig(t *testing.T) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	cfg := `
data_source:
  provider: mock
  symbols: ["0700.HK"]
  benchmark: "2800.HK"
database:
  sqlite_path: ` + filepath.Join(dir, "db", "hkquant.db") + `
  tasks_path: ` + filepath.Join(dir, "db", "tasks.db") + `
optimizer:
  ma_start: 5
  ma_end: 20
  ma_step: 5
  days: 300
terminal:
  allowed_commands: ["echo", "sh"]
  timeout_seconds: 5
`
	cfgPath = filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, dir
}

func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, data string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(data), v); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
}

func TestIndicatorsCmd(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := execute(t, cfg, "--json", "indicators", "700")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Indicators struct {
			Symbol       string  `json:"symbol"`
			CurrentPrice float64 `json:"current_price"`
		} `json:"indicators"`
		Signal struct {
			TriggerType string `json:"trigger_type"`
			Factors     []any  `json:"factors"`
		} `json:"signal"`
		Oscillators struct {
			MACD      *float64 `json:"macd"`
			BollUpper *float64 `json:"bollinger_upper"`
			BollLower *float64 `json:"bollinger_lower"`
		} `json:"oscillators"`
	}
	decode(t, out, &got)
	o := got.Oscillators
	if o.MACD == nil || o.BollUpper == nil || o.BollLower == nil || *o.BollLower >= *o.BollUpper {
		t.Errorf("unexpected oscillators %+v", o)
	}
	if got.Indicators.Symbol != "0700.HK" || got.Indicators.CurrentPrice != 100 {
		t.Errorf("unexpected indicators %+v", got.Indicators)
	}
	if got.Signal.TriggerType != "MANUAL" || len(got.Signal.Factors) == 0 {
		t.Errorf("unexpected signal %+v", got.Signal)
	}
}

func TestIndicatorsCmd_RenderedAndBarsCSV(t *testing.T) {
	cfg, dir := writeConfig(t)
	path := filepath.Join(dir, "out", "bars.csv")
	out, err := execute(t, cfg, "--out", path, "indicators", "0700.HK")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "0700.HK indicators") {
		t.Errorf("rendered view missing title: %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	rows := strings.Split(strings.TrimSpace(string(data)), "\n")
	if rows[0] != "Date,Open,High,Low,Close,Volume" || len(rows) != indicatorDays+1 {
		t.Errorf("unexpected csv: header %q, %d rows", rows[0], len(rows))
	}
}

func TestBacktestCmd(t *testing.T) {
	cfg, _ := writeConfig(t)
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"ma", []string{"--strategy", "ma", "--period", "20"}, false},
		{"crossover", []string{"-s", "crossover", "--fast", "5", "--slow", "20"}, false},
		{"rsi", []string{"-s", "rsi", "--period", "14"}, false},
		{"bad crossover", []string{"-s", "crossover", "--fast", "30", "--slow", "20"}, true},
		{"unknown", []string{"-s", "macd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--json", "backtest", "0700.HK"}, tt.args...)
			out, err := execute(t, cfg, args...)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			var res struct {
				Periods int `json:"periods"`
			}
			decode(t, out, &res)
			if res.Periods != 299 {
				t.Errorf("periods = %d, want 299", res.Periods)
			}
		})
	}
}

func TestBacktestCmd_CSVUnsupported(t *testing.T) {
	cfg, dir := writeConfig(t)
	if _, err := execute(t, cfg, "--out", filepath.Join(dir, "bt.csv"), "backtest", "0700.HK"); err == nil {
		t.Error("expected csv error")
	}
}

func TestOptimizeCmd(t *testing.T) {
	cfg, dir := writeConfig(t)
	out, err := execute(t, cfg, "--json", "optimize", "ma", "0700.HK")
	if err != nil {
		t.Fatal(err)
	}
	var rep struct {
		Symbol     string `json:"symbol"`
		Strategy   string `json:"strategy"`
		Found      bool   `json:"found"`
		Candidates []any  `json:"candidates"`
	}
	decode(t, out, &rep)
	if rep.Symbol != "0700.HK" || rep.Strategy != "price_vs_ma" || !rep.Found || len(rep.Candidates) != 4 {
		t.Errorf("unexpected report %+v", rep)
	}
	if _, err := os.Stat(filepath.Join(dir, "db", "hkquant.db")); err != nil {
		t.Errorf("optimization not recorded: %v", err)
	}
}

func TestHistoryCmd(t *testing.T) {
	cfg, _ := writeConfig(t)
	for i := 0; i < 2; i++ {
		if _, err := execute(t, cfg, "--json", "optimize", "ma", "700"); err != nil {
			t.Fatal(err)
		}
	}
	out, err := execute(t, cfg, "--json", "history", "optimize", "0700.HK", "-n", "5")
	if err != nil {
		t.Fatal(err)
	}
	var runs []struct {
		Symbol     string `json:"symbol"`
		Strategy   string `json:"strategy"`
		Candidates int    `json:"candidates"`
	}
	decode(t, out, &runs)
	if len(runs) != 2 || runs[0].Symbol != "0700.HK" || runs[0].Strategy != "price_vs_ma" || runs[0].Candidates != 4 {
		t.Errorf("unexpected history %+v", runs)
	}

	out, err = execute(t, cfg, "history", "optimize", "0005.HK")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "0005.HK optimizer history") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestOptimizeCmd_RangeFlagsAndCSV(t *testing.T) {
	cfg, dir := writeConfig(t)
	path := filepath.Join(dir, "sweep.csv")
	if _, err := execute(t, cfg, "--out", path, "optimize", "ma", "0700.HK", "--start", "10", "--end", "30", "--step", "10"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	rows := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(rows) != 4 || !strings.HasPrefix(rows[0], "params,period") {
		t.Errorf("unexpected csv %q", rows)
	}

	if _, err := execute(t, cfg, "optimize", "ma", "0700.HK", "--start", "30", "--end", "10"); err == nil {
		t.Error("expected invalid range error")
	}
	if _, err := execute(t, cfg, "optimize", "kdj", "0700.HK"); err == nil {
		t.Error("expected unknown strategy error")
	}
}

func TestOptimizeCmd_Crossover(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := execute(t, cfg, "--json", "optimize", "crossover", "0700.HK",
		"--fast-start", "5", "--fast-end", "10", "--fast-step", "5",
		"--slow-start", "20", "--slow-end", "40", "--slow-step", "20")
	if err != nil {
		t.Fatal(err)
	}
	var rep struct {
		Strategy   string `json:"strategy"`
		Candidates []any  `json:"candidates"`
	}
	decode(t, out, &rep)
	if len(rep.Candidates) != 4 {
		t.Errorf("expected 4 candidates, got %d", len(rep.Candidates))
	}
}

func TestRiskCmd_WithSizing(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := execute(t, cfg, "--json", "risk", "0700.HK", "--account", "100000", "--stop", "95", "--lot", "100")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Symbol string `json:"symbol"`
		Risk   struct {
			Observations int `json:"observations"`
		} `json:"risk"`
		Sizing struct {
			Lots   int64 `json:"lots"`
			Shares int64 `json:"shares"`
		} `json:"sizing"`
	}
	decode(t, out, &got)
	if got.Risk.Observations != 299 {
		t.Errorf("observations = %d", got.Risk.Observations)
	}
	// 1% of 100000 over a 5.00 stop distance in lots of 100.
	if got.Sizing.Lots != 2 || got.Sizing.Shares != 200 {
		t.Errorf("unexpected sizing %+v", got.Sizing)
	}

	if _, err := execute(t, cfg, "risk", "0700.HK", "--account", "100000"); err == nil {
		t.Error("expected error without --stop")
	}
}

func TestFundamentalsCmd_Offline(t *testing.T) {
	cfg, _ := writeConfig(t)
	_, err := execute(t, cfg, "fundamentals", "0700.HK")
	if err == nil || !strings.Contains(err.Error(), "offline") {
		t.Errorf("expected offline error, got %v", err)
	}
}

func TestAnalyzeCmd(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := execute(t, cfg, "--json", "analyze")
	if err != nil {
		t.Fatal(err)
	}
	var reps []struct {
		Symbol string `json:"symbol"`
		Rating string `json:"rating"`
	}
	decode(t, out, &reps)
	if len(reps) != 1 || reps[0].Symbol != "0700.HK" || reps[0].Rating == "" {
		t.Errorf("unexpected reports %+v", reps)
	}

	out, err = execute(t, cfg, "analyze", "5")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "0005.HK analysis") {
		t.Errorf("rendered view missing: %q", out)
	}
}

func TestTasksCmd_Lifecycle(t *testing.T) {
	cfg, _ := writeConfig(t)

	out, err := execute(t, cfg, "--json", "tasks", "add", "Check", "HIBOR", "spike", "-p", "2", "-d", "1M above 4%")
	if err != nil {
		t.Fatal(err)
	}
	var task struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Status   string `json:"status"`
		Priority int    `json:"priority"`
	}
	decode(t, out, &task)
	if task.Title != "Check HIBOR spike" || task.Status != "todo" || task.Priority != 2 {
		t.Fatalf("unexpected task %+v", task)
	}

	out, err = execute(t, cfg, "--json", "tasks", "move", task.ID[:8], "doing")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, out, &task)
	if task.Status != "doing" {
		t.Errorf("status = %s, want doing", task.Status)
	}

	if _, err := execute(t, cfg, "tasks", "move", task.ID[:8], "archived"); err == nil {
		t.Error("expected invalid status error")
	}

	out, err = execute(t, cfg, "--json", "tasks", "list", "--status", "doing")
	if err != nil {
		t.Fatal(err)
	}
	var list []map[string]any
	decode(t, out, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 doing task, got %d", len(list))
	}

	if _, err := execute(t, cfg, "tasks", "rm", task.ID[:8], "--yes"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, cfg, "--json", "tasks", "ls")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, out, &list)
	if len(list) != 0 {
		t.Errorf("expected empty board, got %v", list)
	}

	if _, err := execute(t, cfg, "tasks", "rm", "ffffffff", "-y"); err == nil {
		t.Error("expected not found error")
	}
}

func TestRunCmd(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := execute(t, cfg, "--json", "run", "--", "echo", "hello")
	if err != nil {
		t.Fatal(err)
	}
	var res struct {
		Stdout   string `json:"stdout"`
		ExitCode int    `json:"exit_code"`
	}
	decode(t, out, &res)
	if res.Stdout != "hello\n" || res.ExitCode != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	out, err = execute(t, cfg, "--json", "run", "--", "sh", "/nonexistent/script.sh")
	if err == nil {
		t.Fatal("expected non-zero exit error")
	}
	var failed struct {
		Stderr   string `json:"stderr"`
		ExitCode int    `json:"exit_code"`
	}
	decode(t, out, &failed)
	if failed.ExitCode == 0 || !strings.Contains(failed.Stderr, "nonexistent") {
		t.Errorf("failing run should still print its result, got %+v", failed)
	}

	for _, args := range [][]string{{"rm", "-rf", "x"}, {"/bin/echo", "path-qualified"}} {
		if _, err := execute(t, cfg, append([]string{"run", "--"}, args...)...); err == nil {
			t.Errorf("%v: expected allow-list error", args)
		}
	}
}

func TestBotCmd_RequiresTelegram(t *testing.T) {
	cfg, _ := writeConfig(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	_, err := execute(t, cfg, "bot")
	if err == nil || !strings.Contains(err.Error(), "bot_token") {
		t.Errorf("expected telegram config error, got %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data_source:\n  provider: bloomberg\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, path, "indicators", "0700.HK"); err == nil {
		t.Error("expected validation error")
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, filepath.Join(t.TempDir(), "missing.yaml"), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "hkquant ") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestServices_BotScoresReachDashboard(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a := &app{cfg: cfg, log: zap.NewNop(), out: io.Discard}
	ctx := context.Background()
	svc, err := a.startServices(ctx)
	if err != nil {
		t.Fatalf("startServices: %v", err)
	}
	defer svc.close()

	if reply := a.newBot(svc).Handle(ctx, "/match Kitchee Eastern"); !strings.Contains(reply, "Kitchee") {
		t.Fatalf("match reply = %q", reply)
	}
	rec := httptest.NewRecorder()
	a.dashboard(svc).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scores", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var matches []struct {
		Home string `json:"home"`
		Away string `json:"away"`
	}
	decode(t, rec.Body.String(), &matches)
	if len(matches) != 1 || matches[0].Home != "Kitchee" || matches[0].Away != "Eastern" {
		t.Errorf("dashboard scores = %+v", matches)
	}
}
