package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"HKQuant/internal/collector"
	"HKQuant/internal/export"
	"HKQuant/internal/recorder"
)

var errNoHistory = errors.New("history needs a working database.sqlite_path")

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded optimizer results and HIBOR fixings",
	}
	cmd.AddCommand(newHistoryOptimizeCmd(a), newHistoryHiborCmd(a))
	return cmd
}

// sqliteRecorder opens the history database, refusing the no-op fallback.
func (a *app) sqliteRecorder() (*recorder.SQLiteRecorder, error) {
	rec, ok := a.recorder().(*recorder.SQLiteRecorder)
	if !ok {
		return nil, errNoHistory
	}
	return rec, nil
}

func newHistoryOptimizeCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "optimize SYMBOL",
		Short: "Recent optimizer runs for a symbol, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.sqliteRecorder()
			if err != nil {
				return err
			}
			defer rec.Close()
			sym := collector.YahooSymbol(args[0])
			runs, err := rec.RecentOptimizations(sym, limit)
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []recorder.OptimizationRecord{}
			}
			return a.emit(runs, nil, func() string {
				rows := make([][]string, len(runs))
				for i, r := range runs {
					rows[i] = []string{
						r.RecordedAt.Format("2006-01-02 15:04"), r.Strategy, r.Params.String(),
						ratio(r.Sharpe), signed("%+.1f%%", r.TotalReturn*100), fmt.Sprint(r.Candidates),
					}
				}
				return lines(title(sym+" optimizer history"),
					grid([]string{"Recorded", "Strategy", "Best", "Sharpe", "Return", "Candidates"}, rows))
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs")
	return cmd
}

func newHistoryHiborCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "hibor",
		Short: "Stored HIBOR fixings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.sqliteRecorder()
			if err != nil {
				return err
			}
			defer rec.Close()
			rates, err := rec.HiborHistory(limit)
			if err != nil {
				return err
			}
			return a.emit(rates,
				func(w io.Writer) error { return export.HiborCSV(w, rates) },
				func() string { return renderHibor(rates) })
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "number of days")
	return cmd
}
