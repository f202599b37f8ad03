package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Nseflow NseflowConfig `yaml:"nseflow"`
	Source  SourceConfig  `yaml:"source"`
	Dataset DatasetConfig `yaml:"dataset"`
	Storage StorageConfig `yaml:"storage"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

type NseflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SourceConfig struct {
	NSE NSESourceConfig `yaml:"nse"`
}

type NSESourceConfig struct {
	BaseURL        string               `yaml:"base_url"`
	ListingPath    string               `yaml:"listing_path"`
	APIPath        string               `yaml:"api_path"`
	Index          string               `yaml:"index"`
	Timeout        time.Duration        `yaml:"timeout"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Bootstrap      BootstrapConfig      `yaml:"bootstrap"`
	Lookback       LookbackConfig       `yaml:"lookback"`
	DebugDumpFile  string               `yaml:"debug_dump_file"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// BootstrapConfig controls the pacing pauses around the cookie warmup
// requests. The pauses imitate a human browsing the site before the API
// call; they are not a correctness requirement.
type BootstrapConfig struct {
	PageMinDelay     time.Duration `yaml:"page_min_delay"`
	PageMaxDelay     time.Duration `yaml:"page_max_delay"`
	PreFetchMinDelay time.Duration `yaml:"pre_fetch_min_delay"`
	PreFetchMaxDelay time.Duration `yaml:"pre_fetch_max_delay"`
}

// LookbackConfig bounds the fetch window. MaxDays reflects the remote
// API's maximum supported range, DefaultDays applies on a cold start.
type LookbackConfig struct {
	DefaultDays int `yaml:"default_days"`
	MaxDays     int `yaml:"max_days"`
}

type DatasetConfig struct {
	File       string `yaml:"file"`
	DateColumn string `yaml:"date_column"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type ArchiveConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type LoggingConfig struct {
	Level         string                 `yaml:"level"`
	Format        string                 `yaml:"format"`
	Output        string                 `yaml:"output"`
	MaxAge        int                    `yaml:"max_age"`
	Fields        map[string]interface{} `yaml:"fields"`
	DashboardName string                 `yaml:"dashboard_name"`
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	applyDefaults(&config)
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	cfg.Source.NSE = NSESourceConfig{
		BaseURL:     "https://www.nseindia.com",
		ListingPath: "/companies-listing/corporate-filings-insider-trading",
		APIPath:     "/api/corporates-pit",
		Index:       "equities",
		Timeout:     30 * time.Second,
		ConnectionPool: ConnectionPoolConfig{
			MaxIdleConns:    4,
			MaxConnsPerHost: 4,
			IdleConnTimeout: 90 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0.5,
			BurstSize:         1,
		},
		Bootstrap: BootstrapConfig{
			PageMinDelay:     1 * time.Second,
			PageMaxDelay:     3 * time.Second,
			PreFetchMinDelay: 2 * time.Second,
			PreFetchMaxDelay: 4 * time.Second,
		},
		Lookback: LookbackConfig{
			DefaultDays: 7,
			MaxDays:     30,
		},
		DebugDumpFile: "nse_response_debug.html",
	}
	cfg.Dataset = DatasetConfig{
		File:       "nse_insider_trading_data.csv",
		DateColumn: "date",
	}
	cfg.Archive.Compression = "snappy"
	cfg.Logging = LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "nse_scraper.log",
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Nseflow.Name == "" {
		return fmt.Errorf("nseflow.name is required")
	}

	if cfg.Nseflow.Version == "" {
		return fmt.Errorf("nseflow.version is required")
	}

	if cfg.Source.NSE.BaseURL == "" {
		return fmt.Errorf("source.nse.base_url is required")
	}
	if cfg.Source.NSE.Timeout <= 0 {
		return fmt.Errorf("source.nse.timeout must be greater than 0")
	}
	if cfg.Source.NSE.Lookback.DefaultDays <= 0 {
		return fmt.Errorf("source.nse.lookback.default_days must be greater than 0")
	}
	if cfg.Source.NSE.Lookback.MaxDays < cfg.Source.NSE.Lookback.DefaultDays {
		return fmt.Errorf("source.nse.lookback.max_days must be at least default_days")
	}
	if cfg.Source.NSE.Bootstrap.PageMaxDelay < cfg.Source.NSE.Bootstrap.PageMinDelay {
		return fmt.Errorf("source.nse.bootstrap.page_max_delay must be at least page_min_delay")
	}

	if cfg.Dataset.File == "" {
		return fmt.Errorf("dataset.file is required")
	}
	if cfg.Dataset.DateColumn == "" {
		return fmt.Errorf("dataset.date_column is required")
	}

	if cfg.Archive.Enabled && !cfg.Storage.S3.Enabled {
		return fmt.Errorf("archive.enabled requires storage.s3.enabled")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if IsProductionLike(AppEnvironment()) &&
			(cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "") {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
