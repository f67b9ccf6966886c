// Package bot routes chat commands to the analysis, task board and
// scoreboard packages and renders the replies as Telegram HTML.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"HKQuant/internal/agent"
	"HKQuant/internal/model"
	"HKQuant/internal/notifier"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/recorder"
	"HKQuant/internal/scoreboard"
	"HKQuant/internal/strategy"
	"HKQuant/internal/taskboard"
)

// Analyzer produces the combined report behind /report.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*agent.Report, error)
}

// MarketData is the part of collector.Collector the bot needs.
type MarketData interface {
	Series(ctx context.Context, symbol string, days int) (*model.PriceSeries, error)
	Indicators(series *model.PriceSeries) *model.MarketIndicators
}

// HiborSource returns the latest HIBOR fixings, newest first.
type HiborSource interface {
	Hibor(ctx context.Context, limit int) ([]model.HiborRate, error)
}

const (
	indicatorDays = 300
	hiborRows     = 5
	topCandidates = 5
)

const helpText = `<b>HKQuant bot</b>
/report SYM   combined analysis and rating
/rsi SYM      indicators and signal
/optimize SYM MA period sweep by Sharpe
/hibor        latest HIBOR fixings
/tasks        task board
/task add TITLE | move ID STATUS | done ID | rm ID
/match HOME AWAY   start a match
/goal ID TEAM [N]  add points
/end ID            finish a match
/scores       all matches
/help         this message`

// Bot answers chat commands. Any nil dependency disables the commands that
// need it.
type Bot struct {
	Analyst  Analyzer
	Market   MarketData
	Hibor    HiborSource
	Tasks    *taskboard.Board
	Scores   *scoreboard.Board
	Recorder recorder.Recorder

	// Symbols[0] is used when a command omits its symbol.
	Symbols     []string
	MARange     optimizer.Range
	RiskFree    float64
	HistoryDays int

	log *zap.Logger
}

func New(log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		Scores:      scoreboard.New(),
		Recorder:    recorder.NewNoopRecorder(),
		MARange:     optimizer.Range{Start: 5, End: 200, Step: 5},
		HistoryDays: 756,
		log:         log.Named("bot"),
	}
}

// Handle implements notifier.CommandHandler.
func (b *Bot) Handle(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]

	var reply string
	var err error
	switch cmd {
	case "/report":
		reply, err = b.report(ctx, args)
	case "/rsi":
		reply, err = b.indicators(ctx, args)
	case "/optimize":
		reply, err = b.optimize(ctx, args)
	case "/hibor":
		reply, err = b.hibor(ctx)
	case "/tasks":
		reply, err = b.listTasks(ctx)
	case "/task":
		reply, err = b.task(ctx, args)
	case "/match":
		reply, err = b.startMatch(args)
	case "/goal":
		reply, err = b.goal(args)
	case "/end":
		reply, err = b.endMatch(args)
	case "/scores":
		reply = notifier.FormatScoreboard(b.Scores.List())
	default:
		return helpText
	}
	if err != nil {
		b.log.Warn("command failed", zap.String("command", cmd), zap.Error(err))
		return "❌ " + html.EscapeString(err.Error())
	}
	return reply
}

var errUnavailable = errors.New("not available in this deployment")

func (b *Bot) symbol(args []string) (string, error) {
	if len(args) > 0 {
		return strings.ToUpper(args[0]), nil
	}
	if len(b.Symbols) > 0 {
		return b.Symbols[0], nil
	}
	return "", errors.New("usage: give a symbol, e.g. 0700.HK")
}

func (b *Bot) report(ctx context.Context, args []string) (string, error) {
	if b.Analyst == nil {
		return "", fmt.Errorf("/report: %w", errUnavailable)
	}
	sym, err := b.symbol(args)
	if err != nil {
		return "", err
	}
	rep, err := b.Analyst.Analyze(ctx, sym)
	if err != nil {
		return "", err
	}
	if err := b.Recorder.RecordAnalysis(&recorder.AnalysisSnapshot{
		Indicators: rep.Indicators, Signal: rep.Signal, Rating: string(rep.Rating),
	}); err != nil {
		b.log.Error("record analysis", zap.Error(err))
	}
	return notifier.FormatAnalysisReport(rep), nil
}

func (b *Bot) indicators(ctx context.Context, args []string) (string, error) {
	if b.Market == nil {
		return "", fmt.Errorf("/rsi: %w", errUnavailable)
	}
	sym, err := b.symbol(args)
	if err != nil {
		return "", err
	}
	series, err := b.Market.Series(ctx, sym, indicatorDays)
	if err != nil {
		return "", err
	}
	ind := b.Market.Indicators(series)
	signal := strategy.Evaluate(ind)
	signal.TriggerType = model.TriggerManual
	return notifier.FormatSignal(ind, signal), nil
}

func (b *Bot) optimize(ctx context.Context, args []string) (string, error) {
	if b.Market == nil {
		return "", fmt.Errorf("/optimize: %w", errUnavailable)
	}
	sym, err := b.symbol(args)
	if err != nil {
		return "", err
	}
	series, err := b.Market.Series(ctx, sym, b.HistoryDays)
	if err != nil {
		return "", err
	}
	rep, err := optimizer.OptimizeMA(model.Closes(series.DailyBars), b.MARange, b.RiskFree)
	if err != nil {
		return "", err
	}
	if err := b.Recorder.RecordOptimization(recorder.NewOptimizationRecord(sym, rep)); err != nil {
		b.log.Error("record optimization", zap.Error(err))
	}
	return notifier.FormatOptimization(sym, rep, topCandidates), nil
}

func (b *Bot) hibor(ctx context.Context) (string, error) {
	if b.Hibor == nil {
		return "", fmt.Errorf("/hibor: %w", errUnavailable)
	}
	rates, err := b.Hibor.Hibor(ctx, hiborRows)
	if err != nil {
		return "", err
	}
	if err := b.Recorder.RecordHibor(rates); err != nil {
		b.log.Error("record hibor", zap.Error(err))
	}
	return notifier.FormatHibor(rates), nil
}

func (b *Bot) listTasks(ctx context.Context) (string, error) {
	if b.Tasks == nil {
		return "", fmt.Errorf("/tasks: %w", errUnavailable)
	}
	tasks, err := b.Tasks.List(ctx, taskboard.Filter{})
	if err != nil {
		return "", err
	}
	return notifier.FormatTasks(tasks), nil
}

func (b *Bot) task(ctx context.Context, args []string) (string, error) {
	if b.Tasks == nil {
		return "", fmt.Errorf("/task: %w", errUnavailable)
	}
	if len(args) < 2 {
		return "", errors.New("usage: /task add TITLE | move ID STATUS | done ID | rm ID")
	}
	action := strings.ToLower(args[0])
	switch action {
	case "add":
		t, err := b.Tasks.Add(ctx, strings.Join(args[1:], " "), "", 0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ added <code>%s</code> %s", t.ID[:8], html.EscapeString(t.Title)), nil
	case "move", "done":
		status := taskboard.StatusDone
		if action == "move" {
			if len(args) < 3 {
				return "", errors.New("usage: /task move ID STATUS")
			}
			st, err := taskboard.ParseStatus(args[2])
			if err != nil {
				return "", err
			}
			status = st
		}
		t, err := b.Tasks.Resolve(ctx, args[1])
		if err != nil {
			return "", err
		}
		if t, err = b.Tasks.Move(ctx, t.ID, status); err != nil {
			return "", err
		}
		return fmt.Sprintf("➡️ %s is now %s", html.EscapeString(t.Title), t.Status), nil
	case "rm":
		t, err := b.Tasks.Resolve(ctx, args[1])
		if err != nil {
			return "", err
		}
		if err := b.Tasks.Delete(ctx, t.ID); err != nil {
			return "", err
		}
		return "🗑 removed " + html.EscapeString(t.Title), nil
	default:
		return "", fmt.Errorf("unknown task action %q", args[0])
	}
}

func formatMatch(m scoreboard.Match) string {
	line := fmt.Sprintf("<code>%s</code> %s %d – %d %s",
		m.ID, html.EscapeString(m.Home), m.HomeScore, m.AwayScore, html.EscapeString(m.Away))
	if m.Finished {
		if leader := m.Leader(); leader != "" {
			return line + "\n🏆 " + html.EscapeString(leader) + " wins"
		}
		return line + "\n🤝 draw"
	}
	return line
}

func (b *Bot) startMatch(args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.New("usage: /match HOME AWAY")
	}
	m, err := b.Scores.Start(args[0], args[1])
	if err != nil {
		return "", err
	}
	return "⚽ kick-off\n" + formatMatch(m), nil
}

func (b *Bot) goal(args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("usage: /goal ID TEAM [N]")
	}
	points := 1
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return "", fmt.Errorf("invalid points %q", args[2])
		}
		points = n
	}
	m, err := b.Scores.Score(args[0], args[1], points)
	if err != nil {
		return "", err
	}
	return formatMatch(m), nil
}

func (b *Bot) endMatch(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: /end ID")
	}
	m, err := b.Scores.Finish(args[0])
	if err != nil {
		return "", err
	}
	return "🏁 full time\n" + formatMatch(m), nil
}
