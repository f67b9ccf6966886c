package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor HKQUANT_CONFIG is set.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider  string   `yaml:"provider"` // yahoo | longport | csv | mock
		Symbols   []string `yaml:"symbols"`
		Benchmark string   `yaml:"benchmark"`
		CSVDir    string   `yaml:"csv_dir"`
		Longport  struct {
			AppKey      string `yaml:"app_key"`
			AppSecret   string `yaml:"app_secret"`
			AccessToken string `yaml:"access_token"`
		} `yaml:"longport"`
	} `yaml:"data_source"`
	Scraper struct {
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		Retries        int      `yaml:"retries"`
		RetryWaitMs    int      `yaml:"retry_wait_ms"`
		UserAgent      string   `yaml:"user_agent"`
		HKMAURL        string   `yaml:"hkma_url"`
		HKEXURL        string   `yaml:"hkex_url"`
		LIHKGURL       string   `yaml:"lihkg_url"`
		LIHKGCategory  int      `yaml:"lihkg_category"`
		FREDURL        string   `yaml:"fred_url"`
		FREDAPIKey     string   `yaml:"fred_api_key"`
		FREDSeries     []string `yaml:"fred_series"`
	} `yaml:"scraper"`
	Schedule struct {
		DailyCron     string `yaml:"daily_cron"`
		HiborCron     string `yaml:"hibor_cron"`
		SentimentCron string `yaml:"sentiment_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
		TasksPath  string `yaml:"tasks_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Optimizer struct {
		MAStart      int     `yaml:"ma_start"`
		MAEnd        int     `yaml:"ma_end"`
		MAStep       int     `yaml:"ma_step"`
		RiskFreeRate float64 `yaml:"risk_free_rate"`
		Days         int     `yaml:"days"`
	} `yaml:"optimizer"`
	Terminal struct {
		AllowedCommands []string `yaml:"allowed_commands"`
		TimeoutSeconds  int      `yaml:"timeout_seconds"`
		Retries         int      `yaml:"retries"`
	} `yaml:"terminal"`
	OutputDir string `yaml:"output_dir"`
	Proxy     string `yaml:"proxy"`
}

// ResolvePath picks the config file location: explicit flag, then
// HKQUANT_CONFIG, then DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("HKQUANT_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load starts from the defaults, overlays the YAML file, then applies .env
// and environment variable overrides. Keys present in the file win over the
// defaults even when zero, so `retries: 0` disables retries and an empty
// cron spec disables that job. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.DataSource.Provider, "HKQUANT_PROVIDER")
	setString(&c.DataSource.CSVDir, "HKQUANT_CSV_DIR")
	setString(&c.DataSource.Longport.AppKey, "LONGPORT_APP_KEY")
	setString(&c.DataSource.Longport.AppSecret, "LONGPORT_APP_SECRET")
	setString(&c.DataSource.Longport.AccessToken, "LONGPORT_ACCESS_TOKEN")
	setString(&c.Scraper.FREDAPIKey, "FRED_API_KEY")
	setString(&c.Proxy, "HTTPS_PROXY")
	setString(&c.Schedule.DailyCron, "CRON_DAILY")
	setString(&c.Database.SQLitePath, "SQLITE_PATH")
	setString(&c.Server.Addr, "HKQUANT_ADDR")
	setString(&c.OutputDir, "HKQUANT_OUTPUT_DIR")

	if v := os.Getenv("HKQUANT_SYMBOLS"); v != "" {
		c.DataSource.Symbols = splitList(v)
	}
	if v := os.Getenv("RISK_FREE_RATE"); v != "" {
		if rf, err := strconv.ParseFloat(v, 64); err == nil {
			c.Optimizer.RiskFreeRate = rf
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if len(c.DataSource.Symbols) == 0 {
		c.DataSource.Symbols = []string{"0700.HK", "0005.HK", "2800.HK"}
	}
	if c.DataSource.Benchmark == "" {
		c.DataSource.Benchmark = "2800.HK"
	}
	if c.DataSource.CSVDir == "" {
		c.DataSource.CSVDir = "data/csv"
	}
	if c.Scraper.TimeoutSeconds == 0 {
		c.Scraper.TimeoutSeconds = 20
	}
	if c.Scraper.Retries == 0 {
		c.Scraper.Retries = 3
	}
	if c.Scraper.RetryWaitMs == 0 {
		c.Scraper.RetryWaitMs = 500
	}
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = "Mozilla/5.0 (compatible; HKQuant/1.0)"
	}
	if c.Scraper.HKMAURL == "" {
		c.Scraper.HKMAURL = "https://api.hkma.gov.hk/public/market-data-and-statistics/daily-monetary-statistics/daily-figures-interbank-liquidity"
	}
	if c.Scraper.HKEXURL == "" {
		c.Scraper.HKEXURL = "https://www.hkex.com.hk/Market-Data/Securities-Prices/Equities?sc_lang=en"
	}
	if c.Scraper.LIHKGURL == "" {
		c.Scraper.LIHKGURL = "https://lihkg.com/api_v2"
	}
	if c.Scraper.LIHKGCategory == 0 {
		c.Scraper.LIHKGCategory = 15 // finance
	}
	if c.Scraper.FREDURL == "" {
		c.Scraper.FREDURL = "https://api.stlouisfed.org/fred"
	}
	if len(c.Scraper.FREDSeries) == 0 {
		c.Scraper.FREDSeries = []string{"DFF", "DGS10"}
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 16 * * 1-5" // after HKEX close
	}
	if c.Schedule.HiborCron == "" {
		c.Schedule.HiborCron = "0 15 11 * * 1-5"
	}
	if c.Schedule.SentimentCron == "" {
		c.Schedule.SentimentCron = "0 0 */2 * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/hkquant.db"
	}
	if c.Database.TasksPath == "" {
		c.Database.TasksPath = "data/tasks.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Optimizer.MAStart == 0 {
		c.Optimizer.MAStart = 5
	}
	if c.Optimizer.MAEnd == 0 {
		c.Optimizer.MAEnd = 200
	}
	if c.Optimizer.MAStep == 0 {
		c.Optimizer.MAStep = 5
	}
	if c.Optimizer.Days == 0 {
		c.Optimizer.Days = 756
	}
	if len(c.Terminal.AllowedCommands) == 0 {
		c.Terminal.AllowedCommands = []string{"ls", "echo", "date", "uptime"}
	}
	if c.Terminal.TimeoutSeconds == 0 {
		c.Terminal.TimeoutSeconds = 30
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
}

// Validate checks the settings every command relies on. Credentials used
// by a single command are checked by that command.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "longport", "csv", "mock":
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, longport, csv, mock", c.DataSource.Provider)
	}
	if c.Optimizer.MAStart <= 0 || c.Optimizer.MAEnd < c.Optimizer.MAStart || c.Optimizer.MAStep <= 0 {
		return fmt.Errorf("optimizer range %d..%d step %d is invalid",
			c.Optimizer.MAStart, c.Optimizer.MAEnd, c.Optimizer.MAStep)
	}
	if c.Scraper.Retries < 0 {
		return fmt.Errorf("scraper.retries must not be negative")
	}
	return nil
}

// RequireTelegram reports whether the bot credentials are present.
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
