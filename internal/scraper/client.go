// Package scraper collects Hong Kong market, macro and forum data from
// public HTTP endpoints.
package scraper

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Options configures the shared HTTP client.
type Options struct {
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
	UserAgent string
	Proxy     string
}

// NewHTTPClient builds a resty client that retries transport errors,
// 429 and 5xx responses with backoff.
func NewHTTPClient(opts Options) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(8 * opts.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}
	return client
}

// Scraper bundles the individual source clients around one HTTP client.
type Scraper struct {
	HKMA  *HKMAClient
	HKEX  *HKEXClient
	LIHKG *LIHKGClient
	FRED  *FREDClient
}

// Endpoints are the base URLs of each source.
type Endpoints struct {
	HKMA       string
	HKEX       string
	LIHKG      string
	FRED       string
	FREDAPIKey string
}

// New wires every source client to a shared HTTP client.
func New(opts Options, ep Endpoints, log *zap.Logger) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("scraper")
	client := NewHTTPClient(opts)
	return &Scraper{
		HKMA:  &HKMAClient{http: client, URL: ep.HKMA, log: log},
		HKEX:  &HKEXClient{http: client, URL: ep.HKEX, log: log},
		LIHKG: &LIHKGClient{http: client, BaseURL: ep.LIHKG, log: log},
		FRED:  &FREDClient{http: client, BaseURL: ep.FRED, APIKey: ep.FREDAPIKey, log: log},
	}
}

func statusError(source string, resp *resty.Response) error {
	body := resp.String()
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("%s: status %d: %s", source, resp.StatusCode(), body)
}

// ParseNumber reads figures as printed on quote pages: "1,234.5",
// "HK$12.30", "3.2M", "1.1B", "850K", "12%". Blank and dash cells are 0.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "HK$")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" || s == "--" || s == "N/A" {
		return 0, nil
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1e3
	case 'M', 'm':
		mult = 1e6
	case 'B', 'b':
		mult = 1e9
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	return v * mult, nil
}
