package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScraper(srvURL string, retries int) *Scraper {
	return New(Options{Timeout: 5 * time.Second, Retries: retries, RetryWait: time.Millisecond, UserAgent: "hkquant-test"},
		Endpoints{
			HKMA:       srvURL + "/hkma",
			HKEX:       srvURL + "/hkex",
			LIHKG:      srvURL + "/lihkg",
			FRED:       srvURL + "/fred",
			FREDAPIKey: "key",
		}, nil)
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1,234.5", 1234.5},
		{"HK$302.40", 302.4},
		{"3.2M", 3.2e6},
		{"1.1B", 1.1e9},
		{"850K", 850000},
		{"4.5%", 4.5},
		{"-", 0},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := ParseNumber(tt.in)
		if err != nil {
			t.Errorf("ParseNumber(%q) error: %v", tt.in, err)
			continue
		}
		if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseNumber("abc"); err == nil {
		t.Error("expected error for non-numeric input")
	}
}

func TestHKMA_Hibor(t *testing.T) {
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("/hkma", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		jsonHandler(`{"header":{"success":true,"err_code":"0000","err_msg":"No error found"},
"result":{"datasize":3,"records":[
{"end_of_date":"2024-01-05","hibor_overnight":4.51,"hibor_fixing_1w":4.6,"hibor_fixing_1m":4.9,"hibor_fixing_3m":5.1,"hibor_fixing_6m":5.2,"hibor_fixing_12m":5.3},
{"end_of_date":"2024-01-01","hibor_overnight":null,"hibor_fixing_1w":null,"hibor_fixing_1m":null,"hibor_fixing_3m":null,"hibor_fixing_6m":null,"hibor_fixing_12m":null},
{"end_of_date":"2023-12-29","hibor_overnight":5.0,"hibor_fixing_1w":5.1,"hibor_fixing_1m":5.2,"hibor_fixing_3m":5.3,"hibor_fixing_6m":5.4,"hibor_fixing_12m":5.5}]}}`)(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rates, err := newTestScraper(srv.URL, 0).HKMA.Hibor(context.Background(), 3)
	if err != nil {
		t.Fatalf("Hibor: %v", err)
	}
	if !strings.Contains(query, "pagesize=3") || !strings.Contains(query, "sortorder=desc") {
		t.Errorf("query = %q", query)
	}
	if len(rates) != 2 {
		t.Fatalf("expected holiday row skipped, got %d rates", len(rates))
	}
	if rates[0].Overnight != 4.51 || rates[0].Month3 != 5.1 {
		t.Errorf("first rate = %+v", rates[0])
	}
	if !rates[0].Date.After(rates[1].Date) {
		t.Error("rates should be newest first")
	}
}

func TestHKMA_HeaderFailure(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(`{"header":{"success":false,"err_code":"0101","err_msg":"bad param"}}`))
	defer srv.Close()
	s := newTestScraper(srv.URL, 0)
	if _, err := s.HKMA.Hibor(context.Background(), 5); err == nil || !strings.Contains(err.Error(), "bad param") {
		t.Fatalf("expected header error, got %v", err)
	}
}

const hkexPage = `<html><body>
<table>
<tr><th>Code</th><th>Name</th><th>Last</th><th>Turnover</th></tr>
<tr><td>700</td><td>TENCENT</td><td>302.40</td><td>12.5B</td></tr>
<tr><td>00005</td><td> HSBC   HOLDINGS </td><td>HK$61.15</td><td>3,210.5M</td></tr>
<tr><td>Total</td><td></td><td></td><td></td></tr>
<tr><td>9988</td><td>BABA-W</td><td>n/a price</td><td>1M</td></tr>
</table></body></html>`

func TestParseSecurities(t *testing.T) {
	secs, err := ParseSecurities(strings.NewReader(hkexPage))
	if err != nil {
		t.Fatalf("ParseSecurities: %v", err)
	}
	if len(secs) != 2 {
		t.Fatalf("expected 2 securities, got %d: %+v", len(secs), secs)
	}
	if secs[0].Code != "00700" || secs[0].Last != 302.4 || secs[0].Turnover != 12.5e9 {
		t.Errorf("first = %+v", secs[0])
	}
	if secs[1].Name != "HSBC HOLDINGS" {
		t.Errorf("name not normalized: %q", secs[1].Name)
	}
}

func TestHKEX_Securities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(hkexPage))
	}))
	defer srv.Close()
	secs, err := newTestScraper(srv.URL, 0).HKEX.Securities(context.Background(), "")
	if err != nil {
		t.Fatalf("Securities: %v", err)
	}
	if len(secs) != 2 {
		t.Errorf("got %d securities", len(secs))
	}
}

func TestLIHKG_Threads(t *testing.T) {
	var path, cat, ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, cat, ua = r.URL.Path, r.URL.Query().Get("cat_id"), r.UserAgent()
		jsonHandler(`{"success":1,"response":{"items":[
{"thread_id":"3600001","title":"騰訊 700 業績好勁","like_count":40,"dislike_count":2,"no_of_reply":120,"create_time":1704153600},
{"thread_id":"3600002","title":"恒指又跌","like_count":5,"dislike_count":9,"no_of_reply":30,"create_time":1704157200}]}}`)(w, r)
	}))
	defer srv.Close()

	posts, err := newTestScraper(srv.URL, 0).LIHKG.Threads(context.Background(), 15, 1)
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}
	if path != "/lihkg/thread/category" || cat != "15" {
		t.Errorf("path=%q cat=%q", path, cat)
	}
	if ua != "hkquant-test" {
		t.Errorf("user agent = %q", ua)
	}
	if len(posts) != 2 || posts[0].ID != "3600001" || posts[0].Likes != 40 || posts[1].Replies != 30 {
		t.Errorf("posts = %+v", posts)
	}
}

func TestLIHKG_Failure(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(`{"success":0,"error_message":"rate limited"}`))
	defer srv.Close()
	if _, err := newTestScraper(srv.URL, 0).LIHKG.Threads(context.Background(), 1, 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestFRED_Series(t *testing.T) {
	var start, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, key = r.URL.Query().Get("observation_start"), r.URL.Query().Get("api_key")
		jsonHandler(`{"observations":[{"date":"2024-01-01","value":"."},{"date":"2024-01-02","value":"5.33"},{"date":"2024-01-03","value":"5.31"}]}`)(w, r)
	}))
	defer srv.Close()

	obs, err := newTestScraper(srv.URL, 0).FRED.Series(context.Background(), "DFF", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if start != "2024-01-01" || key != "key" {
		t.Errorf("start=%q key=%q", start, key)
	}
	if len(obs) != 2 || obs[0].Value != 5.33 || obs[0].SeriesID != "DFF" {
		t.Errorf("obs = %+v", obs)
	}
}

func TestFRED_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_code":400,"error_message":"Bad Request. The series does not exist."}`))
	}))
	defer srv.Close()
	_, err := newTestScraper(srv.URL, 2).FRED.Series(context.Background(), "NOPE", time.Time{})
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected API error message, got %v", err)
	}
}

func TestFRED_MissingKey(t *testing.T) {
	s := newTestScraper("http://127.0.0.1:0", 0)
	s.FRED.APIKey = ""
	if _, err := s.FRED.Series(context.Background(), "DFF", time.Time{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		jsonHandler(`{"success":1,"response":{"items":[]}}`)(w, r)
	}))
	defer srv.Close()

	posts, err := newTestScraper(srv.URL, 2).LIHKG.Threads(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Threads after retry: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("posts = %+v", posts)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}
