package scraper

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"HKQuant/internal/model"
)

// HKEXClient scrapes security quotation tables from HKEX pages.
type HKEXClient struct {
	http *resty.Client
	URL  string
	log  *zap.Logger
}

// Securities downloads pageURL (the configured URL when empty) and parses
// every quotation table row on it.
func (c *HKEXClient) Securities(ctx context.Context, pageURL string) ([]model.Security, error) {
	if pageURL == "" {
		pageURL = c.URL
	}
	resp, err := c.http.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("hkex request: %w", err)
	}
	if resp.IsError() {
		return nil, statusError("hkex", resp)
	}
	secs, err := ParseSecurities(strings.NewReader(resp.String()))
	if err != nil {
		return nil, err
	}
	c.log.Debug("hkex securities parsed", zap.Int("rows", len(secs)))
	return secs, nil
}

// ParseSecurities extracts rows whose first cell is a numeric stock code,
// reading code, name, last price and turnover from the first four cells.
func ParseSecurities(r io.Reader) ([]model.Security, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var secs []model.Security
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		code := strings.TrimSpace(cells.Eq(0).Text())
		if !isStockCode(code) {
			return
		}
		last, err := ParseNumber(cells.Eq(2).Text())
		if err != nil {
			return
		}
		turnover, err := ParseNumber(cells.Eq(3).Text())
		if err != nil {
			return
		}
		secs = append(secs, model.Security{
			Code:     padCode(code),
			Name:     strings.Join(strings.Fields(cells.Eq(1).Text()), " "),
			Last:     last,
			Turnover: turnover,
		})
	})
	return secs, nil
}

func isStockCode(s string) bool {
	if s == "" || len(s) > 5 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func padCode(code string) string {
	for len(code) < 5 {
		code = "0" + code
	}
	return code
}
