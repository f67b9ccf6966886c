// Package export writes analysis results to JSON and CSV files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/pretty"

	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
)

// MarshalPretty encodes v as indented JSON.
func MarshalPretty(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(data), nil
}

// WriteJSON writes v to path, creating parent directories.
func WriteJSON(path string, v any) error {
	data, err := MarshalPretty(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeFile(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// IsCSV reports whether path names a CSV file.
func IsCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

func num(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// CandidatesCSV writes one row per optimizer candidate. A non-finite
// Sharpe is left empty.
func CandidatesCSV(w io.Writer, candidates []optimizer.Candidate) error {
	rows := make([][]string, len(candidates))
	for i, c := range candidates {
		rows[i] = []string{
			c.Params.String(),
			strconv.Itoa(c.Params.Period),
			strconv.Itoa(c.Params.Fast),
			strconv.Itoa(c.Params.Slow),
			num(c.Params.Buy),
			num(c.Params.Sell),
			num(c.Sharpe),
			num(c.TotalReturn),
			num(c.MaxDrawdown),
			strconv.Itoa(c.Trades),
			strconv.FormatBool(c.Insufficient),
		}
	}
	return writeCSV(w, []string{"params", "period", "fast", "slow", "buy", "sell", "sharpe", "total_return", "max_drawdown", "trades", "insufficient"}, rows)
}

// BarsCSV writes OHLCV bars in the layout read back by the CSV data source.
func BarsCSV(w io.Writer, bars []model.OHLCV) error {
	rows := make([][]string, len(bars))
	for i, b := range bars {
		rows[i] = []string{
			b.Time.Format("2006-01-02"),
			num(b.Open), num(b.High), num(b.Low), num(b.Close), num(b.Volume),
		}
	}
	return writeCSV(w, []string{"Date", "Open", "High", "Low", "Close", "Volume"}, rows)
}

// HiborCSV writes HIBOR fixings, one row per day.
func HiborCSV(w io.Writer, rates []model.HiborRate) error {
	rows := make([][]string, len(rates))
	for i, r := range rates {
		rows[i] = []string{
			r.Date.Format("2006-01-02"),
			num(r.Overnight), num(r.Week1), num(r.Month1), num(r.Month3), num(r.Month6), num(r.Month12),
		}
	}
	return writeCSV(w, []string{"date", "overnight", "1w", "1m", "3m", "6m", "12m"}, rows)
}

// WriteCSV writes rows produced by fn to path.
func WriteCSV(path string, fn func(io.Writer) error) error {
	return writeFile(path, fn)
}
