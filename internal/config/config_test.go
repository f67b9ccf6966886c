package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataSource.Provider != "yahoo" {
		t.Errorf("provider = %q", cfg.DataSource.Provider)
	}
	if cfg.Optimizer.MAStart != 5 || cfg.Optimizer.MAEnd != 200 || cfg.Optimizer.MAStep != 5 {
		t.Errorf("optimizer defaults = %+v", cfg.Optimizer)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: file-token
  chat_id: "42"
data_source:
  provider: csv
  symbols: ["700", "5"]
optimizer:
  ma_start: 10
  ma_end: 50
  ma_step: 10
  risk_free_rate: 0.02
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("HKQUANT_SYMBOLS", "9988, 3690 ,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("env should override file, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "42" {
		t.Errorf("chat id = %q", cfg.Telegram.ChatID)
	}
	if cfg.DataSource.Provider != "csv" {
		t.Errorf("provider = %q", cfg.DataSource.Provider)
	}
	if len(cfg.DataSource.Symbols) != 2 || cfg.DataSource.Symbols[1] != "3690" {
		t.Errorf("symbols = %v", cfg.DataSource.Symbols)
	}
	if cfg.Optimizer.MAStart != 10 || cfg.Optimizer.RiskFreeRate != 0.02 {
		t.Errorf("optimizer = %+v", cfg.Optimizer)
	}
	if err := cfg.RequireTelegram(); err != nil {
		t.Errorf("RequireTelegram: %v", err)
	}
}

func TestLoad_ExplicitZeroValuesKept(t *testing.T) {
	path := writeConfig(t, `
scraper:
  retries: 0
schedule:
  hibor_cron: ""
  sentiment_cron: ""
`)
	t.Setenv("CRON_DAILY", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scraper.Retries != 0 {
		t.Errorf("retries = %d, want explicit 0", cfg.Scraper.Retries)
	}
	if cfg.Schedule.HiborCron != "" || cfg.Schedule.SentimentCron != "" {
		t.Errorf("disabled jobs were re-enabled: %+v", cfg.Schedule)
	}
	if cfg.Schedule.DailyCron != "0 30 16 * * 1-5" {
		t.Errorf("absent daily_cron should keep its default, got %q", cfg.Schedule.DailyCron)
	}
	if cfg.Scraper.RetryWaitMs != 500 || cfg.Scraper.TimeoutSeconds != 20 {
		t.Errorf("absent scraper keys should keep defaults: %+v", cfg.Scraper)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "telegram: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.DataSource.Provider = "bloomberg"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown provider to fail")
	}
	cfg.DataSource.Provider = "mock"
	cfg.Optimizer.MAEnd = 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected inverted optimizer range to fail")
	}
}

func TestRequireTelegram_Missing(t *testing.T) {
	var cfg Config
	if err := cfg.RequireTelegram(); err == nil {
		t.Fatal("expected error without bot token")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("HKQUANT_CONFIG", "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Errorf("ResolvePath(\"\") = %q", got)
	}
	t.Setenv("HKQUANT_CONFIG", "/etc/hkquant.yaml")
	if got := ResolvePath(""); got != "/etc/hkquant.yaml" {
		t.Errorf("env path = %q", got)
	}
	if got := ResolvePath("cli.yaml"); got != "cli.yaml" {
		t.Errorf("flag path = %q", got)
	}
}
