package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T, extra string) string {
	t.Helper()
	content := `nseflow:
  name: "TestApp"
  version: "1.0"
` + extra
	f, err := os.CreateTemp(t.TempDir(), "config-*.yml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write config: %v", err)
	}
	f.Close()
	return f.Name()
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.NSE.BaseURL != "https://www.nseindia.com" {
		t.Errorf("base url default = %q", cfg.Source.NSE.BaseURL)
	}
	if cfg.Source.NSE.Timeout != 30*time.Second {
		t.Errorf("timeout default = %v", cfg.Source.NSE.Timeout)
	}
	if cfg.Source.NSE.Lookback.DefaultDays != 7 || cfg.Source.NSE.Lookback.MaxDays != 30 {
		t.Errorf("lookback defaults = %+v", cfg.Source.NSE.Lookback)
	}
	if cfg.Dataset.File != "nse_insider_trading_data.csv" {
		t.Errorf("dataset file default = %q", cfg.Dataset.File)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeTempConfig(t, `source:
  nse:
    timeout: 10s
    lookback:
      default_days: 3
      max_days: 15
dataset:
  file: "other.csv"
  date_column: "date"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.NSE.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", cfg.Source.NSE.Timeout)
	}
	if cfg.Source.NSE.Lookback.MaxDays != 15 {
		t.Errorf("max days = %d, want 15", cfg.Source.NSE.Lookback.MaxDays)
	}
	if cfg.Dataset.File != "other.csv" {
		t.Errorf("dataset file = %q", cfg.Dataset.File)
	}
}

func TestLoadConfigMissingName(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.yml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	f.WriteString("nseflow:\n  version: \"1.0\"\n")
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil || !strings.Contains(err.Error(), "nseflow.name") {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestLoadConfigArchiveRequiresS3(t *testing.T) {
	path := writeTempConfig(t, "archive:\n  enabled: true\n")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "storage.s3.enabled") {
		t.Fatalf("expected archive validation error, got %v", err)
	}
}

func TestLoadConfigS3BucketValidation(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("S3_BUCKET", "")
	path := writeTempConfig(t, `storage:
  s3:
    enabled: true
    bucket: "..bad.."
    region: "eu-west-1"
`)
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected bucket validation error, got %v", err)
	}
}

func TestIsProductionLike(t *testing.T) {
	if IsProductionLike(EnvironmentDevelopment) {
		t.Error("development should not be production-like")
	}
	if !IsProductionLike(EnvironmentProduction) || !IsProductionLike(EnvironmentStaging) {
		t.Error("production and staging should be production-like")
	}
}
