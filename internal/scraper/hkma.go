package scraper

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"HKQuant/internal/model"
)

// HKMAClient reads HIBOR fixings from the HKMA open data API.
type HKMAClient struct {
	http *resty.Client
	URL  string
	log  *zap.Logger
}

type hkmaResponse struct {
	Header struct {
		Success bool   `json:"success"`
		ErrCode string `json:"err_code"`
		ErrMsg  string `json:"err_msg"`
	} `json:"header"`
	Result struct {
		Datasize int          `json:"datasize"`
		Records  []hkmaRecord `json:"records"`
	} `json:"result"`
}

type hkmaRecord struct {
	EndOfDate string   `json:"end_of_date"`
	Overnight *float64 `json:"hibor_overnight"`
	Week1     *float64 `json:"hibor_fixing_1w"`
	Month1    *float64 `json:"hibor_fixing_1m"`
	Month3    *float64 `json:"hibor_fixing_3m"`
	Month6    *float64 `json:"hibor_fixing_6m"`
	Month12   *float64 `json:"hibor_fixing_12m"`
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Hibor returns up to limit daily fixings, newest first. Days without any
// fixing (holidays) are skipped.
func (c *HKMAClient) Hibor(ctx context.Context, limit int) ([]model.HiborRate, error) {
	if limit <= 0 {
		limit = 30
	}
	var out hkmaResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"pagesize":  strconv.Itoa(limit),
			"sortby":    "end_of_date",
			"sortorder": "desc",
		}).
		SetResult(&out).
		Get(c.URL)
	if err != nil {
		return nil, fmt.Errorf("hkma request: %w", err)
	}
	if resp.IsError() {
		return nil, statusError("hkma", resp)
	}
	if !out.Header.Success {
		return nil, fmt.Errorf("hkma: %s %s", out.Header.ErrCode, out.Header.ErrMsg)
	}

	rates := make([]model.HiborRate, 0, len(out.Result.Records))
	for _, r := range out.Result.Records {
		if r.Overnight == nil && r.Month1 == nil && r.Month3 == nil {
			continue
		}
		date, err := time.Parse("2006-01-02", r.EndOfDate)
		if err != nil {
			c.log.Warn("skipping HKMA record with bad date", zap.String("date", r.EndOfDate))
			continue
		}
		rates = append(rates, model.HiborRate{
			Date:      date,
			Overnight: deref(r.Overnight),
			Week1:     deref(r.Week1),
			Month1:    deref(r.Month1),
			Month3:    deref(r.Month3),
			Month6:    deref(r.Month6),
			Month12:   deref(r.Month12),
		})
	}
	c.log.Debug("hibor fetched", zap.Int("records", len(rates)))
	return rates, nil
}
