package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultAPIKey is the placeholder primary key shipped in examples.
// Startup validation flags deployments that never changed it.
const DefaultAPIKey = "your-secret-api-key-here"

type ServerConfig struct {
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"`
	Domain           string   `yaml:"domain"`
	Debug            bool     `yaml:"debug"`
	MaxContentMB     int      `yaml:"maxContentMB"`
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	LogLevel         string   `yaml:"logLevel"`
	StrictValidation bool     `yaml:"strictValidation"`
}

type AuthConfig struct {
	APIKey         string   `yaml:"apiKey"`
	AdditionalKeys []string `yaml:"additionalKeys"`
	JWTEnabled     bool     `yaml:"jwtEnabled"`
	JWTSecret      string   `yaml:"jwtSecret"`
}

type RateLimitConfig struct {
	KeyPerMinute int `yaml:"keyPerMinute"`
	IPPerMinute  int `yaml:"ipPerMinute"`
}

type ScraperConfig struct {
	Headless       bool     `yaml:"headless"`
	TimeoutSeconds int      `yaml:"timeoutSeconds"`
	MaxRetries     int      `yaml:"maxRetries"`
	MaxConcurrency int      `yaml:"maxConcurrency"`
	ProxyURLs      []string `yaml:"proxyURLs"`
	RespectRobots  bool     `yaml:"respectRobots"`
	BrowserBin     string   `yaml:"browserBin"`
	NoSandbox      bool     `yaml:"noSandbox"`
}

type CacheConfig struct {
	TTLSeconds int    `yaml:"ttlSeconds"`
	MaxItems   int    `yaml:"maxItems"`
	RedisURL   string `yaml:"redisURL"`
}

type ReadyCheckConfig struct {
	ASIN            string `yaml:"asin"`
	Country         string `yaml:"country"`
	IntervalSeconds int    `yaml:"intervalSeconds"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Cache      CacheConfig      `yaml:"cache"`
	ReadyCheck ReadyCheckConfig `yaml:"readyCheck"`
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variable overrides, in that order (env wins).
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		f, err := os.Open(path)
		if err == nil {
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("open config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			MaxContentMB:   1,
			AllowedOrigins: []string{"*"},
			LogLevel:       "info",
		},
		Auth: AuthConfig{
			APIKey: DefaultAPIKey,
		},
		RateLimit: RateLimitConfig{
			KeyPerMinute: 60,
			IPPerMinute:  120,
		},
		Scraper: ScraperConfig{
			Headless:       true,
			TimeoutSeconds: 30,
			MaxRetries:     2,
			MaxConcurrency: 3,
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
			MaxItems:   1000,
		},
		ReadyCheck: ReadyCheckConfig{
			Country:         "IN",
			IntervalSeconds: 900,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "API_HOST")
	setInt(&cfg.Server.Port, "API_PORT")
	setString(&cfg.Server.Domain, "API_DOMAIN")
	setBool(&cfg.Server.Debug, "DEBUG_MODE")
	setString(&cfg.Server.LogLevel, "LOG_LEVEL")
	setInt(&cfg.Server.MaxContentMB, "MAX_CONTENT_LENGTH_MB")
	setSlice(&cfg.Server.AllowedOrigins, "ALLOWED_ORIGINS")
	setBool(&cfg.Server.StrictValidation, "STRICT_VALIDATION")

	setString(&cfg.Auth.APIKey, "API_KEY")
	setSlice(&cfg.Auth.AdditionalKeys, "API_KEYS")
	setBool(&cfg.Auth.JWTEnabled, "JWT_ENABLED")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")

	setInt(&cfg.RateLimit.KeyPerMinute, "RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.RateLimit.IPPerMinute, "IP_RATE_LIMIT_PER_MINUTE")

	setBool(&cfg.Scraper.Headless, "HEADLESS_MODE")
	setInt(&cfg.Scraper.TimeoutSeconds, "SCRAPE_TIMEOUT_SECONDS")
	setInt(&cfg.Scraper.MaxRetries, "SCRAPE_MAX_RETRIES")
	setInt(&cfg.Scraper.MaxConcurrency, "MAX_CONCURRENCY")
	setSlice(&cfg.Scraper.ProxyURLs, "PROXY_URLS")
	setBool(&cfg.Scraper.RespectRobots, "RESPECT_ROBOTS")
	setString(&cfg.Scraper.BrowserBin, "BROWSER_BIN")
	setBool(&cfg.Scraper.NoSandbox, "NO_SANDBOX")

	setInt(&cfg.Cache.TTLSeconds, "CACHE_TTL_SECONDS")
	setInt(&cfg.Cache.MaxItems, "CACHE_MAX_ITEMS")
	setString(&cfg.Cache.RedisURL, "REDIS_URL")

	setString(&cfg.ReadyCheck.ASIN, "READY_CHECK_ASIN")
	setString(&cfg.ReadyCheck.Country, "READY_CHECK_COUNTRY")
	setInt(&cfg.ReadyCheck.IntervalSeconds, "READY_CHECK_INTERVAL_SECONDS")
}

// Origins resolves the effective CORS origin list. A lone wildcard is
// replaced by the public domain when one is configured, so deployments
// that set API_DOMAIN but forget ALLOWED_ORIGINS do not stay wide open.
func (c *Config) Origins() []string {
	if len(c.Server.AllowedOrigins) == 1 && c.Server.AllowedOrigins[0] == "*" && c.Server.Domain != "" {
		return []string{strings.TrimRight(c.Server.Domain, "/")}
	}
	return c.Server.AllowedOrigins
}

// Validate reports configuration findings. In strict mode callers
// treat any finding as fatal; otherwise they are logged as warnings.
func (c *Config) Validate() []string {
	var findings []string
	if c.Auth.APIKey == DefaultAPIKey && len(c.Auth.AdditionalKeys) == 0 {
		findings = append(findings, "primary API key is the default value and no additional keys are configured")
	}
	if c.Auth.JWTEnabled && c.Auth.JWTSecret == "" {
		findings = append(findings, "JWT auth is enabled but JWT_SECRET is empty")
	}
	if c.Scraper.MaxConcurrency < 1 {
		findings = append(findings, fmt.Sprintf("MAX_CONCURRENCY must be >= 1, got %d", c.Scraper.MaxConcurrency))
	}
	return findings
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		v = strings.TrimSpace(v)
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func setSlice(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}
