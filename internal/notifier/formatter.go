package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"HKQuant/internal/agent"
	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/scoreboard"
	"HKQuant/internal/sentiment"
	"HKQuant/internal/taskboard"
)

func sharpeText(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatSignal formats an indicator snapshot and its trade signal.
func FormatSignal(ind *model.MarketIndicators, signal *model.TradeSignal) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", html.EscapeString(ind.Symbol), time.Now().Format("2006-01-02")))

	// Price and MAs
	b.WriteString(fmt.Sprintf("Price: %.2f\n", ind.CurrentPrice))
	ma200Dev := 0.0
	if ind.MA200 > 0 {
		ma200Dev = (ind.CurrentPrice - ind.MA200) / ind.MA200 * 100
	}
	b.WriteString(fmt.Sprintf("MA200: %.2f (%+.1f%%)\n", ind.MA200, ma200Dev))
	b.WriteString(fmt.Sprintf("MA20w: %.2f | MA50w: %.2f\n", ind.MA20w, ind.MA50w))
	b.WriteString(fmt.Sprintf("RSI daily %.1f | weekly %.1f\n", ind.DailyRSI, ind.WeeklyRSI))
	b.WriteString(fmt.Sprintf("52w range %.2f – %.2f (%.0f%%)\n\n", ind.Low52w, ind.High52w, ind.Position52w*100))

	// Factor details
	b.WriteString("📈 <b>Factors:</b>\n")
	for _, f := range signal.Factors {
		b.WriteString(fmt.Sprintf("  %s (%s): %+.1f ×%.2f = %+.3f\n",
			f.Name, html.EscapeString(f.Commentary), f.RawScore, f.Weight, f.Weighted))
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  Total: %+.3f\n\n", signal.TotalScore))

	b.WriteString(fmt.Sprintf("💰 <b>Stance:</b> %s %.2fx\n", signal.Tier.Label, signal.Tier.Multiplier))
	if signal.WarningMsg != "" {
		b.WriteString(fmt.Sprintf("\n%s\n", html.EscapeString(signal.WarningMsg)))
	}
	return b.String()
}

// FormatAnalysisReport formats a combined agent report.
func FormatAnalysisReport(rep *agent.Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🤖 <b>%s</b>: <b>%s</b> (score %+.2f)\n\n",
		html.EscapeString(rep.Symbol), rep.Rating, rep.Score))
	for _, line := range rep.Rationale {
		b.WriteString("• " + html.EscapeString(line) + "\n")
	}
	if len(rep.Warnings) > 0 {
		b.WriteString("\n⚠️ ")
		b.WriteString(html.EscapeString(strings.Join(rep.Warnings, "; ")))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatOptimization lists the top n candidates of an optimizer sweep.
func FormatOptimization(symbol string, rep *optimizer.Report, n int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧪 <b>%s</b> %s optimization\n", html.EscapeString(symbol), rep.Strategy))
	if !rep.Found {
		b.WriteString("Not enough history for any parameter set.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Best: %s Sharpe %s, return %+.1f%%, max DD %.1f%%\n\n",
		rep.Best.Params, sharpeText(rep.Best.Sharpe), rep.Best.TotalReturn*100, rep.Best.MaxDrawdown*100))
	b.WriteString("<pre>")
	for i, c := range rep.Top(n) {
		b.WriteString(fmt.Sprintf("%2d. %-28s %6s\n", i+1, c.Params, sharpeText(c.Sharpe)))
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatHibor renders HIBOR fixings as a fixed-width table.
func FormatHibor(rates []model.HiborRate) string {
	if len(rates) == 0 {
		return "No HIBOR data."
	}
	var b strings.Builder
	b.WriteString("🏦 <b>HIBOR (%)</b>\n<pre>")
	b.WriteString("Date        O/N    1W    1M    3M    6M   12M\n")
	for _, r := range rates {
		b.WriteString(fmt.Sprintf("%s %5.2f %5.2f %5.2f %5.2f %5.2f %5.2f\n",
			r.Date.Format("2006-01-02"), r.Overnight, r.Week1, r.Month1, r.Month3, r.Month6, r.Month12))
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatScoreboard lists live and finished matches.
func FormatScoreboard(matches []scoreboard.Match) string {
	if len(matches) == 0 {
		return "No matches. Start one with /match HOME AWAY"
	}
	var b strings.Builder
	b.WriteString("⚽ <b>Scores</b>\n")
	for _, m := range matches {
		state := "LIVE"
		if m.Finished {
			state = "FT"
		}
		b.WriteString(fmt.Sprintf("<code>%s</code> %s %d – %d %s [%s]\n",
			m.ID, html.EscapeString(m.Home), m.HomeScore, m.AwayScore, html.EscapeString(m.Away), state))
	}
	return b.String()
}

// FormatTasks groups tasks by board column.
func FormatTasks(tasks []taskboard.Task) string {
	if len(tasks) == 0 {
		return "Task board is empty."
	}
	byStatus := map[taskboard.Status][]taskboard.Task{}
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Tasks</b>\n")
	for _, st := range taskboard.Statuses {
		list := byStatus[st]
		if len(list) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", strings.ToUpper(string(st))))
		for _, t := range list {
			b.WriteString(fmt.Sprintf("  P%d <code>%s</code> %s\n", t.Priority, shortID(t.ID), html.EscapeString(t.Title)))
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatSentiment summarizes forum mood and the most mentioned codes.
func FormatSentiment(s sentiment.Summary, topMentions int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💬 <b>Forum mood: %s</b> (%+.2f)\n", s.Mood(), s.Score))
	b.WriteString(fmt.Sprintf("%d posts: %d bullish, %d bearish, %d neutral\n", s.Posts, s.Bullish, s.Bearish, s.Neutral))

	type mention struct {
		code  string
		count int
	}
	var ms []mention
	for code, n := range s.Mentions {
		ms = append(ms, mention{code, n})
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].count != ms[j].count {
			return ms[i].count > ms[j].count
		}
		return ms[i].code < ms[j].code
	})
	if len(ms) > topMentions {
		ms = ms[:topMentions]
	}
	for _, m := range ms {
		b.WriteString(fmt.Sprintf("  %s × %d\n", m.code, m.count))
	}
	return b.String()
}
