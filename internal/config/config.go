package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ProfitSentinel/internal/model"
)

// Config holds all application configuration.
type Config struct {
	QuickBooks struct {
		ClientID     string        `yaml:"client_id"`
		ClientSecret string        `yaml:"client_secret"`
		RealmID      string        `yaml:"realm_id"`
		RefreshToken string        `yaml:"refresh_token"`
		AccessToken  string        `yaml:"access_token"`
		Environment  string        `yaml:"environment"` // "sandbox" or "production"
		BaseURL      string        `yaml:"base_url"`
		TokenURL     string        `yaml:"token_url"`
		Timeout      time.Duration `yaml:"timeout"`
		ExpirySkew   time.Duration `yaml:"expiry_skew"` // refresh this long before the access token expires
		ReportFile   string        `yaml:"report_file"` // read a saved payload instead of calling the API
	} `yaml:"quickbooks"`
	Report struct {
		StartDate string `yaml:"start_date"`
		EndDate   string `yaml:"end_date"`
		Metric    string `yaml:"metric"`
	} `yaml:"report"`
	Forecast struct {
		Horizon      int     `yaml:"horizon"`
		Level        float64 `yaml:"level"`
		SeasonLength int     `yaml:"season_length"`
	} `yaml:"forecast"`
	Credentials struct {
		Store string `yaml:"store"` // "file", "sqlite" or "memory"
		Path  string `yaml:"path"`
	} `yaml:"credentials"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		ForecastCron string `yaml:"forecast_cron"`
		RefreshCron  string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Server struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// DotEnvPath is read before environment overrides are applied. Variables
// already set in the process environment take precedence over the file.
var DotEnvPath = ".env"

const intuitTokenURL = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(DotEnvPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", DotEnvPath, err)
	}

	// Environment variable overrides
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.QuickBooks.ClientID, "QB_CLIENT_ID")
	setString(&cfg.QuickBooks.ClientSecret, "QB_CLIENT_SECRET")
	setString(&cfg.QuickBooks.RefreshToken, "QB_REFRESH_TOKEN")
	setString(&cfg.QuickBooks.AccessToken, "QB_ACCESS_TOKEN")
	setString(&cfg.QuickBooks.RealmID, "QB_REALM_ID")
	setString(&cfg.QuickBooks.Environment, "QB_ENVIRONMENT")
	setString(&cfg.Database.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Server.Addr, "HTTP_ADDR")
	setString(&cfg.Schedule.ForecastCron, "CRON_FORECAST")
	setString(&cfg.Proxy, "HTTPS_PROXY")
	if v := os.Getenv("FORECAST_HORIZON"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("FORECAST_HORIZON: %w", err)
		}
		cfg.Forecast.Horizon = n
	}

	// Defaults
	if cfg.QuickBooks.Environment == "" {
		cfg.QuickBooks.Environment = "sandbox"
	}
	if cfg.QuickBooks.TokenURL == "" {
		cfg.QuickBooks.TokenURL = intuitTokenURL
	}
	if cfg.QuickBooks.Timeout == 0 {
		cfg.QuickBooks.Timeout = 30 * time.Second
	}
	if cfg.QuickBooks.ExpirySkew == 0 {
		cfg.QuickBooks.ExpirySkew = 5 * time.Minute
	}
	if cfg.Report.Metric == "" {
		cfg.Report.Metric = string(model.GroupNetIncome)
	}
	if cfg.Forecast.Horizon == 0 {
		cfg.Forecast.Horizon = 3
	}
	if cfg.Forecast.Level == 0 {
		cfg.Forecast.Level = 0.80
	}
	if cfg.Forecast.SeasonLength == 0 {
		cfg.Forecast.SeasonLength = 12
	}
	if cfg.Credentials.Store == "" {
		cfg.Credentials.Store = "file"
	}
	if cfg.Credentials.Path == "" && cfg.Credentials.Store == "file" {
		cfg.Credentials.Path = "data/credential.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/profit_sentinel.db"
	}
	if cfg.Schedule.ForecastCron == "" {
		cfg.Schedule.ForecastCron = "0 0 6 1 * *"
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */30 * * * *"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.QuickBooks.ReportFile == "" {
		if c.QuickBooks.ClientID == "" {
			return fmt.Errorf("quickbooks.client_id is required")
		}
		if c.QuickBooks.ClientSecret == "" {
			return fmt.Errorf("quickbooks.client_secret is required")
		}
		if c.QuickBooks.RealmID == "" {
			return fmt.Errorf("quickbooks.realm_id is required")
		}
	}
	switch c.QuickBooks.Environment {
	case "sandbox", "production":
	default:
		return fmt.Errorf("quickbooks.environment must be sandbox or production, got %q", c.QuickBooks.Environment)
	}
	if _, ok := model.ParseGroupTag(c.Report.Metric); !ok {
		return fmt.Errorf("report.metric %q is not a known group", c.Report.Metric)
	}
	for name, v := range map[string]string{"report.start_date": c.Report.StartDate, "report.end_date": c.Report.EndDate} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return fmt.Errorf("%s must be YYYY-MM-DD: %w", name, err)
		}
	}
	if c.Forecast.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be positive")
	}
	if c.Forecast.Level <= 0 || c.Forecast.Level >= 1 {
		return fmt.Errorf("forecast.level must be between 0 and 1")
	}
	switch c.Credentials.Store {
	case "memory":
	case "file", "sqlite":
		if c.Credentials.Store == "file" && c.Credentials.Path == "" {
			return fmt.Errorf("credentials.path is required for the file store")
		}
	default:
		return fmt.Errorf("credentials.store must be file, sqlite or memory, got %q", c.Credentials.Store)
	}
	return nil
}

// Metric returns the configured metric as a group tag.
func (c *Config) Metric() model.GroupTag {
	g, _ := model.ParseGroupTag(c.Report.Metric)
	return g
}

// ReportWindow parses the configured dates. Unset dates are zero.
func (c *Config) ReportWindow() (start, end time.Time) {
	start, _ = time.Parse("2006-01-02", c.Report.StartDate)
	end, _ = time.Parse("2006-01-02", c.Report.EndDate)
	return start, end
}
