package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"HKQuant/internal/model"
)

// FREDClient reads economic time series from the St. Louis Fed API.
type FREDClient struct {
	http    *resty.Client
	BaseURL string
	APIKey  string
	log     *zap.Logger
}

type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

type fredError struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// Series returns observations of seriesID from start onward (all history
// when start is zero). Missing values, published as ".", are skipped.
func (c *FREDClient) Series(ctx context.Context, seriesID string, start time.Time) ([]model.EconomicObservation, error) {
	if c.APIKey == "" {
		return nil, errors.New("fred: api key not configured")
	}
	params := map[string]string{
		"series_id": seriesID,
		"api_key":   c.APIKey,
		"file_type": "json",
	}
	if !start.IsZero() {
		params["observation_start"] = start.Format("2006-01-02")
	}

	var out fredResponse
	var apiErr fredError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		SetError(&apiErr).
		Get(c.BaseURL + "/series/observations")
	if err != nil {
		return nil, fmt.Errorf("fred request: %w", err)
	}
	if resp.IsError() {
		if apiErr.ErrorMessage != "" {
			return nil, fmt.Errorf("fred %s: %s", seriesID, apiErr.ErrorMessage)
		}
		return nil, statusError("fred", resp)
	}

	obs := make([]model.EconomicObservation, 0, len(out.Observations))
	for _, o := range out.Observations {
		if o.Value == "." {
			continue
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			continue
		}
		obs = append(obs, model.EconomicObservation{SeriesID: seriesID, Date: date, Value: v})
	}
	c.log.Debug("fred series fetched", zap.String("series", seriesID), zap.Int("observations", len(obs)))
	return obs, nil
}
