package config

import (
	"os"
	"time"
)

// Environment names accepted by Config.Environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Base URLs of the book-review API per environment.
const (
	ProductionAPIURL  = "https://dabooks-api-c1dc5695b41d.herokuapp.com"
	DevelopmentAPIURL = "http://localhost:5000"
)

// Config holds runtime settings for the dabooks client.
//
// Fields:
//   - Environment: "development" or "production"; selects the default APIURL.
//   - APIURL: base URL of the HTTP JSON API; overrides the environment default.
//   - RequestTimeout: upper bound for every API request.
//   - ExpiryCheckInterval: how often the session token's exp claim is checked.
//   - SearchDebounce: quiet period after the last keystroke before searching.
//   - PageSize: books per catalog page.
//   - StateFile: SQLite file holding the persisted token/username/darkMode.
//   - LogLevel: debug, info, warn or error.
//   - MetricsAddr: host:port for the Prometheus endpoint; empty disables it.
type Config struct {
	Environment         string        `env:"ENV"`
	APIURL              string        `env:"API_URL"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	ExpiryCheckInterval time.Duration `env:"EXPIRY_CHECK_INTERVAL"`
	SearchDebounce      time.Duration `env:"SEARCH_DEBOUNCE"`
	PageSize            int           `env:"PAGE_SIZE"`
	StateFile           string        `env:"STATE_FILE"`
	LogLevel            string        `env:"LOG_LEVEL"`
	MetricsAddr         string        `env:"METRICS_ADDR"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Environment = EnvDevelopment
	c.APIURL = ""
	c.RequestTimeout = 15 * time.Second
	c.ExpiryCheckInterval = 60 * time.Second
	c.SearchDebounce = 300 * time.Millisecond
	c.PageSize = 10
	c.StateFile = "dabooks.db"
	c.LogLevel = "info"
	c.MetricsAddr = ""
}

// ResolvedAPIURL returns APIURL, or the environment's default when unset.
func (c *Config) ResolvedAPIURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	if c.Environment == EnvProduction {
		return ProductionAPIURL
	}
	return DevelopmentAPIURL
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (and an optional .env file), a JSON file (if requested) and
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, ".env")
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	cfg.resetNonPositive()
	return cfg
}

// resetNonPositive restores the default for every interval or size that was
// configured as zero or negative.
func (c *Config) resetNonPositive() {
	var d Config
	d.LoadDefaults()

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ExpiryCheckInterval <= 0 {
		c.ExpiryCheckInterval = d.ExpiryCheckInterval
	}
	if c.SearchDebounce <= 0 {
		c.SearchDebounce = d.SearchDebounce
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
}
