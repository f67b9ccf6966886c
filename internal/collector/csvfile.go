package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"HKQuant/internal/model"
)

var csvDateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", time.RFC3339}

// CSVFetcher reads bars from <Dir>/<SYMBOL>.csv files with a header row
// naming Date, Open, High, Low, Close and Volume columns (any order,
// case-insensitive; "Adj Close" is ignored).
type CSVFetcher struct {
	Dir string
}

func NewCSVFetcher(dir string) *CSVFetcher { return &CSVFetcher{Dir: dir} }

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) path(symbol string) string {
	name := strings.ReplaceAll(YahooSymbol(symbol), "^", "")
	return filepath.Join(f.Dir, name+".csv")
}

func (f *CSVFetcher) load(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.path(symbol))
	if err != nil {
		return nil, fmt.Errorf("csv open: %w", err)
	}
	defer file.Close()
	bars, err := ParseBarsCSV(file)
	if err != nil {
		return nil, fmt.Errorf("csv %s: %w", symbol, err)
	}
	return bars, nil
}

// ParseBarsCSV decodes OHLCV rows from r, sorted oldest first. A leading
// byte order mark selects UTF-8 or UTF-16; without one UTF-8 is assumed.
func ParseBarsCSV(r io.Reader) ([]model.OHLCV, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	var bars []model.OHLCV
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseCSVDate(rec[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		closePrice, err := strconv.ParseFloat(strings.TrimSpace(rec[cols["close"]]), 64)
		if err != nil {
			continue // "null" rows in exported files
		}
		bar := model.OHLCV{
			Time:   ts,
			Open:   csvField(rec, cols, "open", closePrice),
			High:   csvField(rec, cols, "high", closePrice),
			Low:    csvField(rec, cols, "low", closePrice),
			Close:  closePrice,
			Volume: csvField(rec, cols, "volume", 0),
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, errors.New("no rows")
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func csvField(rec []string, cols map[string]int, name string, fallback float64) float64 {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseCSVDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func (f *CSVFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	bars, err := f.load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return lastN(bars, days), nil
}

func (f *CSVFetcher) FetchWeeklyBars(ctx context.Context, symbol string, weeks int) ([]model.OHLCV, error) {
	bars, err := f.load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return lastN(AggregateDailyToWeekly(bars), weeks), nil
}

func (f *CSVFetcher) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	bars, err := f.load(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return bars[len(bars)-1].Close, nil
}
