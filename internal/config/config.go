// Package config loads settings from an optional YAML file, a .env file and
// SPARES_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	DB struct {
		Path string
	} `mapstructure:"db"`

	Auth struct {
		JWTSecret      string        `mapstructure:"jwt_secret"`
		TokenTTL       time.Duration `mapstructure:"token_ttl"`
		BootstrapAdmin string        `mapstructure:"bootstrap_admin"`
	} `mapstructure:"auth"`

	Log struct {
		Level  string
		Format string
		File   string
	} `mapstructure:"log"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Alerts struct {
		Enabled    bool
		Weekday    string
		Hour       int
		Timezone   string
		Recipients []string
	} `mapstructure:"alerts"`

	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	} `mapstructure:"smtp"`

	WS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"ws"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.path", "spares.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("auth.bootstrap_admin", "admin")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("alerts.enabled", false)
	v.SetDefault("alerts.weekday", "monday")
	v.SetDefault("alerts.hour", 9)
	v.SetDefault("alerts.timezone", "Asia/Kolkata")
	v.SetDefault("alerts.recipients", []string{})
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "spares@localhost")
	v.SetDefault("ws.allowed_origins", []string{})
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and the environment are used.
func Load(path string) (Config, error) {
	var c Config

	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SPARES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	c.Alerts.Recipients = splitList(c.Alerts.Recipients)
	c.WS.AllowedOrigins = splitList(c.WS.AllowedOrigins)

	return c, c.Validate()
}

// Validate checks values that cannot be decoded into a wrong type but can
// still be wrong.
func (c Config) Validate() error {
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if c.Auth.BootstrapAdmin == "" {
		return fmt.Errorf("auth.bootstrap_admin is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if _, err := c.AlertWeekday(); err != nil {
		return err
	}
	if c.Alerts.Hour < 0 || c.Alerts.Hour > 23 {
		return fmt.Errorf("alerts.hour must be 0-23, got %d", c.Alerts.Hour)
	}
	if _, err := c.AlertLocation(); err != nil {
		return err
	}
	return nil
}

// AlertWeekday parses alerts.weekday ("monday", "Mon", ...).
func (c Config) AlertWeekday() (time.Weekday, error) {
	w := strings.ToLower(strings.TrimSpace(c.Alerts.Weekday))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if w == name || w == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("alerts.weekday: unknown day %q", c.Alerts.Weekday)
}

// AlertLocation loads alerts.timezone.
func (c Config) AlertLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Alerts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("alerts.timezone: %w", err)
	}
	return loc, nil
}

// splitList accepts both YAML lists and a single comma-separated value.
func splitList(in []string) []string {
	out := []string{}
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
