// Package mcpserver exposes the terminal runner and the analysis packages
// as Model Context Protocol tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/terminal"
)

type MarketData interface {
	Series(ctx context.Context, symbol string, days int) (*model.PriceSeries, error)
	Indicators(series *model.PriceSeries) *model.MarketIndicators
}

type HiborSource interface {
	Hibor(ctx context.Context, limit int) ([]model.HiborRate, error)
}

// Tools holds the dependencies of the tool handlers. A nil dependency
// leaves its tool unregistered.
type Tools struct {
	Runner *terminal.Runner
	Market MarketData
	Hibor  HiborSource

	MARange     optimizer.Range
	RiskFree    float64
	HistoryDays int

	log *zap.Logger
}

func NewTools(log *zap.Logger) *Tools {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tools{
		MARange:     optimizer.Range{Start: 5, End: 200, Step: 5},
		HistoryDays: 756,
		log:         log.Named("mcp"),
	}
}

// NewServer registers every available tool on a new MCP server.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer("hkquant", version, server.WithToolCapabilities(false))

	if t.Runner != nil {
		s.AddTool(mcp.NewTool("run_command",
			mcp.WithDescription("Run an allow-listed local command with timeout and retries"),
			mcp.WithString("command", mcp.Required(), mcp.Description("Command line, e.g. \"git status\"")),
			mcp.WithString("dir", mcp.Description("Working directory")),
		), t.runCommand)
	}
	if t.Market != nil {
		s.AddTool(mcp.NewTool("indicators",
			mcp.WithDescription("Technical indicators and strategy signal for a HK symbol"),
			mcp.WithString("symbol", mcp.Required(), mcp.Description("Symbol, e.g. 0700.HK")),
		), t.indicators)
		s.AddTool(mcp.NewTool("optimize_ma",
			mcp.WithDescription("Grid-search the price vs moving average period by Sharpe ratio"),
			mcp.WithString("symbol", mcp.Required(), mcp.Description("Symbol, e.g. 0700.HK")),
			mcp.WithNumber("start", mcp.Description("First MA period")),
			mcp.WithNumber("end", mcp.Description("Last MA period")),
			mcp.WithNumber("step", mcp.Description("Period step")),
			mcp.WithNumber("top", mcp.Description("Number of candidates to return")),
		), t.optimizeMA)
	}
	if t.Hibor != nil {
		s.AddTool(mcp.NewTool("hibor",
			mcp.WithDescription("Latest HKMA HIBOR fixings"),
			mcp.WithNumber("limit", mcp.Description("Number of days, default 5")),
		), t.hibor)
	}
	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(pretty.Pretty(data))), nil
}

func (t *Tools) runCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := request.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cmd, err := terminal.Parse(line)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cmd.Dir = request.GetString("dir", "")

	res, err := t.Runner.Run(ctx, cmd)
	if res == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := jsonResult(res)
	if err != nil {
		t.log.Warn("run_command failed", zap.String("command", line), zap.Error(err))
		out.IsError = true
	}
	return out, nil
}

func symbolArg(request mcp.CallToolRequest) (string, error) {
	sym, err := request.RequireString("symbol")
	if err != nil {
		return "", err
	}
	sym = strings.ToUpper(strings.TrimSpace(sym))
	if sym == "" {
		return "", fmt.Errorf("symbol is empty")
	}
	return sym, nil
}

func (t *Tools) indicators(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sym, err := symbolArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	series, err := t.Market.Series(ctx, sym, 300)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t.Market.Indicators(series))
}

func (t *Tools) optimizeMA(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sym, err := symbolArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rng := optimizer.Range{
		Start: request.GetInt("start", t.MARange.Start),
		End:   request.GetInt("end", t.MARange.End),
		Step:  request.GetInt("step", t.MARange.Step),
	}
	if _, err := rng.Values(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	series, err := t.Market.Series(ctx, sym, t.HistoryDays)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := optimizer.OptimizeMA(model.Closes(series.DailyBars), rng, t.RiskFree)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"symbol":   sym,
		"strategy": rep.Strategy,
		"found":    rep.Found,
		"best":     rep.Best,
		"top":      rep.Top(request.GetInt("top", 5)),
	})
}

func (t *Tools) hibor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}
	rates, err := t.Hibor.Hibor(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rates)
}
