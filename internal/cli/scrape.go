package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"HKQuant/internal/export"
	"HKQuant/internal/model"
	"HKQuant/internal/sentiment"
)

func newScrapeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch data from HKMA, HKEX, LIHKG and FRED",
	}
	cmd.AddCommand(
		newScrapeHiborCmd(a),
		newScrapeHKEXCmd(a),
		newScrapeLIHKGCmd(a),
		newScrapeFREDCmd(a),
	)
	return cmd
}

func newScrapeHiborCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "hibor",
		Short: "Latest HIBOR fixings from the HKMA API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rates, err := a.scraper().HKMA.Hibor(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rec := a.recorder()
			defer rec.Close()
			if err := rec.RecordHibor(rates); err != nil {
				a.log.Error("record hibor", zap.Error(err))
			}
			return a.emit(rates,
				func(w io.Writer) error { return export.HiborCSV(w, rates) },
				func() string { return renderHibor(rates) })
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of days")
	return cmd
}

func newScrapeHKEXCmd(a *app) *cobra.Command {
	var (
		pageURL string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "hkex",
		Short: "Scrape the HKEX equities price table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secs, err := a.scraper().HKEX.Securities(cmd.Context(), pageURL)
			if err != nil {
				return err
			}
			if limit > 0 && len(secs) > limit {
				secs = secs[:limit]
			}
			return a.emit(secs, nil, func() string { return renderSecurities(secs) })
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "page to scrape (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "rows to keep, 0 for all")
	return cmd
}

func newScrapeLIHKGCmd(a *app) *cobra.Command {
	var category, page int
	cmd := &cobra.Command{
		Use:   "lihkg",
		Short: "List LIHKG forum threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if category == 0 {
				category = a.cfg.Scraper.LIHKGCategory
			}
			posts, err := a.scraper().LIHKG.Threads(cmd.Context(), category, page)
			if err != nil {
				return err
			}
			return a.emit(posts, nil, func() string { return renderPosts(posts) })
		},
	}
	cmd.Flags().IntVar(&category, "category", 0, "forum category (default from config)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func newScrapeFREDCmd(a *app) *cobra.Command {
	var since string
	cmd := &cobra.Command{
		Use:   "fred [SERIES...]",
		Short: "Fetch FRED economic series observations",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse("2006-01-02", since)
			if err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			ids := args
			if len(ids) == 0 {
				ids = a.cfg.Scraper.FREDSeries
			}
			fred := a.scraper().FRED
			var all []model.EconomicObservation
			for _, id := range ids {
				obs, err := fred.Series(cmd.Context(), id, start)
				if err != nil {
					return fmt.Errorf("series %s: %w", id, err)
				}
				all = append(all, obs...)
			}
			return a.emit(all, nil, func() string {
				return lines(title("FRED observations"), renderObservations(all))
			})
		},
	}
	cmd.Flags().StringVar(&since, "since", time.Now().AddDate(0, -3, 0).Format("2006-01-02"), "first observation date")
	return cmd
}

func newSentimentCmd(a *app) *cobra.Command {
	var category, pages int
	cmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Aggregate LIHKG forum sentiment and stock mentions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if category == 0 {
				category = a.cfg.Scraper.LIHKGCategory
			}
			forum := a.scraper().LIHKG
			var posts []model.ForumPost
			for p := 1; p <= pages; p++ {
				batch, err := forum.Threads(cmd.Context(), category, p)
				if err != nil {
					return fmt.Errorf("page %d: %w", p, err)
				}
				posts = append(posts, batch...)
			}
			s := sentiment.Aggregate(posts)
			return a.emit(s, nil, func() string { return renderSentiment(s) })
		},
	}
	cmd.Flags().IntVar(&category, "category", 0, "forum category (default from config)")
	cmd.Flags().IntVar(&pages, "pages", 1, "pages to read")
	return cmd
}
