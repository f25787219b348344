// Package config loads the site list and engine settings with viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lukemcguire/sitepulse/site"
)

const (
	EnvPrefix   = "SITEPULSE"
	DefaultName = "sitepulse"
)

// Config is the full runtime configuration.
type Config struct {
	Sites      []site.Site   `mapstructure:"sites"`
	Thresholds Thresholds    `mapstructure:"thresholds"`
	Engine     EngineConfig  `mapstructure:"engine"`
	Crawler    CrawlerConfig `mapstructure:"crawler"`
	Metrics    MetricsConfig `mapstructure:"metrics"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Thresholds drive status classification.
type Thresholds struct {
	SSLExpiryWarningDays  int   `mapstructure:"ssl_expiry_warning_days"`
	SSLExpiryCriticalDays int   `mapstructure:"ssl_expiry_critical_days"`
	LatencyWarningMS      int64 `mapstructure:"latency_warning_ms"`
	LatencyCriticalMS     int64 `mapstructure:"latency_critical_ms"`
}

// EngineConfig covers settings shared by every checker.
type EngineConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Deadline    time.Duration `mapstructure:"deadline"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// CrawlerConfig covers link checking.
type CrawlerConfig struct {
	CheckExternal   bool    `mapstructure:"check_external"`
	RespectRobots   bool    `mapstructure:"respect_robots"`
	FollowRedirects bool    `mapstructure:"follow_redirects"`
	Concurrency     int     `mapstructure:"concurrency"`
	RateLimit       float64 `mapstructure:"rate_limit"`
}

// MetricsConfig selects the metrics exporter.
type MetricsConfig struct {
	Exporter string `mapstructure:"exporter"` // none|stdout|prometheus|otlp
	Addr     string `mapstructure:"addr"`     // prometheus listen address for watch
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("thresholds.ssl_expiry_warning_days", 30)
	v.SetDefault("thresholds.ssl_expiry_critical_days", 7)
	v.SetDefault("thresholds.latency_warning_ms", 1000)
	v.SetDefault("thresholds.latency_critical_ms", 3000)

	v.SetDefault("engine.concurrency", 1)
	v.SetDefault("engine.timeout", 10*time.Second)
	v.SetDefault("engine.deadline", time.Duration(0))
	v.SetDefault("engine.user_agent", "sitepulse/1.0")

	v.SetDefault("crawler.check_external", false)
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.follow_redirects", false)
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.rate_limit", 10.0)

	v.SetDefault("metrics.exporter", "none")
	v.SetDefault("metrics.addr", ":9464")
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"concurrency":      "engine.concurrency",
	"timeout":          "engine.timeout",
	"deadline":         "engine.deadline",
	"check-external":   "crawler.check_external",
	"respect-robots":   "crawler.respect_robots",
	"follow-redirects": "crawler.follow_redirects",
	"link-concurrency": "crawler.concurrency",
	"rate-limit":       "crawler.rate_limit",
	"metrics":          "metrics.exporter",
	"metrics-addr":     "metrics.addr",
}

// BindFlags binds whichever of the known flags exist in flags.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file (path, or sitepulse.yaml in the working
// directory or $HOME/.config/sitepulse), overlays SITEPULSE_* environment
// variables and returns the decoded, validated config.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sitepulse")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	for i := range cfg.Sites {
		if cfg.Sites[i].Checks == (site.Checks{}) {
			cfg.Sites[i].Checks = site.Checks{SSL: true, Uptime: true, Links: true}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configs the engine cannot run.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Sites))
	for i, s := range c.Sites {
		switch {
		case strings.TrimSpace(s.ID) == "":
			errs = append(errs, fmt.Errorf("sites[%d]: id is required", i))
		case seen[s.ID]:
			errs = append(errs, fmt.Errorf("sites[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true

		u, err := url.Parse(s.URL)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("sites[%d] %s: invalid url: %w", i, s.ID, err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, fmt.Errorf("sites[%d] %s: url must be http or https, got %q", i, s.ID, s.URL))
		case u.Host == "":
			errs = append(errs, fmt.Errorf("sites[%d] %s: url has no host", i, s.ID))
		}
	}

	t := c.Thresholds
	if t.SSLExpiryWarningDays < 0 || t.SSLExpiryCriticalDays < 0 {
		errs = append(errs, errors.New("thresholds: ssl expiry days must not be negative"))
	}
	if t.LatencyWarningMS <= 0 || t.LatencyCriticalMS <= 0 {
		errs = append(errs, errors.New("thresholds: latency thresholds must be positive"))
	}
	if c.Engine.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("engine.concurrency must be at least 1, got %d", c.Engine.Concurrency))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout))
	}
	if c.Crawler.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("crawler.rate_limit must be positive, got %v", c.Crawler.RateLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Warnings lists settings that are accepted but probably unintended.
func (c *Config) Warnings() []string {
	var warnings []string
	t := c.Thresholds
	if t.SSLExpiryCriticalDays >= t.SSLExpiryWarningDays {
		warnings = append(warnings, fmt.Sprintf(
			"ssl_expiry_critical_days (%d) is not below ssl_expiry_warning_days (%d); certificates skip the warning band",
			t.SSLExpiryCriticalDays, t.SSLExpiryWarningDays))
	}
	if t.LatencyCriticalMS <= t.LatencyWarningMS {
		warnings = append(warnings, fmt.Sprintf(
			"latency_critical_ms (%d) is not above latency_warning_ms (%d); slow pages skip the warning band",
			t.LatencyCriticalMS, t.LatencyWarningMS))
	}
	if len(c.Sites) == 0 {
		warnings = append(warnings, "no sites configured")
	}
	return warnings
}

// Site returns the configured site with the given id.
func (c *Config) Site(id string) (site.Site, bool) {
	for _, s := range c.Sites {
		if s.ID == id {
			return s, true
		}
	}
	return site.Site{}, false
}
