package cli

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"HKQuant/internal/agent"
	"HKQuant/internal/backtest"
	"HKQuant/internal/fundamentals"
	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/risk"
	"HKQuant/internal/sentiment"
	"HKQuant/internal/taskboard"
	"HKQuant/internal/terminal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(20)

	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	headerCell = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Padding(0, 1)
	bodyCell   = lipgloss.NewStyle().Padding(0, 1)
)

func title(s string) string { return titleStyle.Render(s) }

func kv(label, value string) string {
	return labelStyle.Render(label) + value
}

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }

// signed colors v by its sign.
func signed(format string, v float64) string {
	s := fmt.Sprintf(format, v)
	switch {
	case v > 0:
		return upStyle.Render(s)
	case v < 0:
		return downStyle.Render(s)
	default:
		return s
	}
}

func ratio(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return mutedStyle.Render("n/a")
	}
	return signed("%.2f", v)
}

func grid(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return bodyCell
		}).
		String()
}

func lines(parts ...string) string { return strings.Join(parts, "\n") }

func sortRows(rows [][]string) {
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderIndicators(ind *model.MarketIndicators, sig *model.TradeSignal) string {
	dev := 0.0
	if ind.MA200 > 0 {
		dev = (ind.CurrentPrice - ind.MA200) / ind.MA200
	}
	head := lines(
		title(ind.Symbol+" indicators"),
		kv("Price", fmt.Sprintf("%.2f", ind.CurrentPrice)),
		kv("MA200", fmt.Sprintf("%.2f (%s)", ind.MA200, signed("%+.1f%%", dev*100))),
		kv("MA20w / MA50w", fmt.Sprintf("%.2f / %.2f", ind.MA20w, ind.MA50w)),
		kv("RSI daily / weekly", fmt.Sprintf("%.1f / %.1f", ind.DailyRSI, ind.WeeklyRSI)),
		kv("52w range", fmt.Sprintf("%.2f - %.2f (%.0f%%)", ind.Low52w, ind.High52w, ind.Position52w*100)),
		kv("30d range", fmt.Sprintf("%.2f - %.2f", ind.Low30d, ind.High30d)),
	)
	rows := make([][]string, 0, len(sig.Factors))
	for _, f := range sig.Factors {
		rows = append(rows, []string{f.Name, fmt.Sprintf("%+.1f", f.RawScore), fmt.Sprintf("%.2f", f.Weight), fmt.Sprintf("%+.3f", f.Weighted), f.Commentary})
	}
	out := lines(head, "", grid([]string{"Factor", "Raw", "Weight", "Weighted", "Note"}, rows),
		kv("Total score", signed("%+.3f", sig.TotalScore)),
		kv("Stance", fmt.Sprintf("%s %.2fx", sig.Tier.Label, sig.Tier.Multiplier)))
	if sig.WarningMsg != "" {
		out += "\n" + warnStyle.Render(sig.WarningMsg)
	}
	return out
}

func renderOscillators(o oscillators) string {
	val := func(v *float64) string {
		if v == nil {
			return mutedStyle.Render("n/a")
		}
		return fmt.Sprintf("%.3f", *v)
	}
	hist := mutedStyle.Render("n/a")
	if o.MACDHist != nil {
		hist = signed("%+.3f", *o.MACDHist)
	}
	return lines(
		kv("MACD / signal", val(o.MACD)+" / "+val(o.MACDSignal)+" ("+hist+")"),
		kv("Bollinger 20,2", val(o.BollLower)+" / "+val(o.BollMiddle)+" / "+val(o.BollUpper)),
	)
}

func renderBacktest(symbol, strategy string, r backtest.Result) string {
	return boxStyle.Render(lines(
		title(fmt.Sprintf("%s backtest (%s)", symbol, strategy)),
		kv("Periods / trades", fmt.Sprintf("%d / %d", r.Periods, r.Trades)),
		kv("Exposure", pct(r.Exposure)),
		kv("Win rate", pct(r.WinRate)),
		kv("Cumulative return", signed("%+.2f%%", r.CumulativeReturn*100)),
		kv("Annual return", signed("%+.2f%%", r.AnnualReturn*100)),
		kv("Annual volatility", pct(r.AnnualVol)),
		kv("Sharpe / Sortino", ratio(r.Sharpe)+" / "+ratio(r.Sortino)),
		kv("Max drawdown", pct(r.MaxDrawdown)),
		kv("Buy & hold", signed("%+.2f%%", r.BuyHoldReturn*100)),
	))
}

func renderOptimization(symbol string, rep *optimizer.Report, top int) string {
	head := title(fmt.Sprintf("%s %s sweep (%d candidates)", symbol, rep.Strategy, len(rep.Candidates)))
	if !rep.Found {
		return lines(head, warnStyle.Render("Not enough history for any parameter set."))
	}
	var rows [][]string
	for i, c := range rep.Top(top) {
		rows = append(rows, []string{
			fmt.Sprint(i + 1), c.Params.String(), ratio(c.Sharpe),
			signed("%+.1f%%", c.TotalReturn*100), pct(c.MaxDrawdown), fmt.Sprint(c.Trades),
		})
	}
	return lines(head,
		kv("Best", fmt.Sprintf("%s  Sharpe %s", rep.Best.Params, ratio(rep.Best.Sharpe))),
		grid([]string{"#", "Params", "Sharpe", "Return", "Max DD", "Trades"}, rows))
}

func renderRisk(symbol string, r *risk.Report, size *risk.Sizing) string {
	body := []string{
		title(symbol + " risk"),
		kv("Observations", fmt.Sprint(r.Observations)),
		kv("Annual return", signed("%+.2f%%", r.AnnualReturn*100)),
		kv("Annual volatility", pct(r.AnnualVol)),
		kv("Sharpe / Sortino", ratio(r.Sharpe)+" / "+ratio(r.Sortino)),
		kv("Max drawdown", pct(r.MaxDrawdown)),
		kv("VaR 95% hist / norm", pct(r.HistoricalVaR)+" / "+pct(r.ParametricVaR)),
		kv("CVaR 95%", pct(r.HistoricalCVaR)),
	}
	if r.HasBenchmark {
		body = append(body, kv("Beta / correlation", fmt.Sprintf("%.2f / %.2f", r.Beta, r.Correlation)))
	}
	if size != nil {
		body = append(body, "",
			kv("Position", fmt.Sprintf("%d lots = %d shares", size.Lots, size.Shares)),
			kv("Notional", size.Notional.StringFixed(2)),
			kv("Max loss at stop", size.MaxLoss.StringFixed(2)+" of budget "+size.RiskBudget.StringFixed(2)))
	}
	return boxStyle.Render(lines(body...))
}

func renderFundamentals(f *model.Fundamentals, as fundamentals.Assessment) string {
	rows := make([][]string, 0, len(as.Factors))
	for _, fs := range as.Factors {
		rows = append(rows, []string{fs.Name, fmt.Sprintf("%+.1f", fs.RawScore), fs.Commentary})
	}
	return lines(
		title(fmt.Sprintf("%s %s", f.Symbol, f.Name)),
		kv("Price", fmt.Sprintf("%.2f", f.Price)),
		kv("PE / PB", fmt.Sprintf("%.1f / %.2f", f.TrailingPE, f.PriceToBook)),
		kv("Dividend yield", pct(f.DividendYield)),
		kv("EPS", fmt.Sprintf("%.2f", f.EPS)),
		kv("Market cap", fmt.Sprintf("%.1fB", float64(f.MarketCap)/1e9)),
		grid([]string{"Factor", "Score", "Note"}, rows),
		kv("Verdict", signed(as.Verdict+" (%+.2f)", as.Total)),
	)
}

func renderHibor(rates []model.HiborRate) string {
	rows := make([][]string, len(rates))
	for i, r := range rates {
		rows[i] = []string{
			r.Date.Format("2006-01-02"),
			fmt.Sprintf("%.4f", r.Overnight), fmt.Sprintf("%.4f", r.Week1), fmt.Sprintf("%.4f", r.Month1),
			fmt.Sprintf("%.4f", r.Month3), fmt.Sprintf("%.4f", r.Month6), fmt.Sprintf("%.4f", r.Month12),
		}
	}
	return lines(title("HIBOR (%)"), grid([]string{"Date", "O/N", "1W", "1M", "3M", "6M", "12M"}, rows))
}

func renderSecurities(secs []model.Security) string {
	rows := make([][]string, len(secs))
	for i, s := range secs {
		rows[i] = []string{s.Code, s.Name, fmt.Sprintf("%.3f", s.Last), fmt.Sprintf("%.0f", s.Turnover)}
	}
	return lines(title(fmt.Sprintf("HKEX securities (%d)", len(secs))), grid([]string{"Code", "Name", "Last", "Turnover"}, rows))
}

func renderPosts(posts []model.ForumPost) string {
	rows := make([][]string, len(posts))
	for i, p := range posts {
		rows[i] = []string{p.ID, p.Title, fmt.Sprintf("%d/%d", p.Likes, p.Dislikes), fmt.Sprint(p.Replies), ratio(sentiment.Score(p.Title))}
	}
	return lines(title(fmt.Sprintf("Forum threads (%d)", len(posts))), grid([]string{"ID", "Title", "+/-", "Replies", "Mood"}, rows))
}

func renderObservations(obs []model.EconomicObservation) string {
	rows := make([][]string, len(obs))
	for i, o := range obs {
		rows[i] = []string{o.SeriesID, o.Date.Format("2006-01-02"), fmt.Sprintf("%.4f", o.Value)}
	}
	return grid([]string{"Series", "Date", "Value"}, rows)
}

func renderSentiment(s sentiment.Summary) string {
	body := []string{
		title("Forum sentiment"),
		kv("Mood", signed(s.Mood()+" (%+.2f)", s.Score)),
		kv("Posts", fmt.Sprintf("%d (%d bullish, %d bearish, %d neutral)", s.Posts, s.Bullish, s.Bearish, s.Neutral)),
	}
	if len(s.Mentions) > 0 {
		var rows [][]string
		for code, n := range s.Mentions {
			rows = append(rows, []string{code, fmt.Sprint(n)})
		}
		sortRows(rows)
		body = append(body, grid([]string{"Code", "Mentions"}, rows))
	}
	return lines(body...)
}

func renderReport(rep *agent.Report) string {
	style := mutedStyle
	switch rep.Rating {
	case agent.StrongBuy, agent.Buy:
		style = upStyle
	case agent.Sell, agent.StrongSell:
		style = downStyle
	}
	body := []string{
		title(rep.Symbol + " analysis"),
		kv("Rating", style.Render(string(rep.Rating))+fmt.Sprintf(" (score %+.2f)", rep.Score)),
	}
	for _, r := range rep.Rationale {
		body = append(body, "  • "+r)
	}
	for _, w := range rep.Warnings {
		body = append(body, warnStyle.Render("  ! "+w))
	}
	return boxStyle.Render(lines(body...))
}

func renderTasks(tasks []taskboard.Task) string {
	if len(tasks) == 0 {
		return mutedStyle.Render("Task board is empty.")
	}
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		rows[i] = []string{shortID(t.ID), string(t.Status), fmt.Sprintf("P%d", t.Priority), t.Title, t.UpdatedAt.Format("2006-01-02 15:04")}
	}
	return grid([]string{"ID", "Status", "Pri", "Title", "Updated"}, rows)
}

func renderRun(res *terminal.Result) string {
	status := upStyle.Render("exit 0")
	if res.ExitCode != 0 {
		status = downStyle.Render(fmt.Sprintf("exit %d", res.ExitCode))
	}
	out := lines(
		title("$ "+res.Command),
		kv("Status", fmt.Sprintf("%s after %d attempt(s), %s", status, res.Attempts, res.Duration.Round(1e6))),
	)
	if res.Stdout != "" {
		out += "\n" + strings.TrimRight(res.Stdout, "\n")
	}
	if res.Stderr != "" {
		out += "\n" + warnStyle.Render(strings.TrimRight(res.Stderr, "\n"))
	}
	return out
}
