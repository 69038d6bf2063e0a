// Package config loads runtime configuration from an optional YAML file and
// SIGNALBOT_* environment variables, with sane defaults for everything else.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Feed struct {
	URL string `mapstructure:"url"`
	// Staging switches from the production feed protocol to the plain
	// JSON tick stream served by cmd/tickserver.
	Staging bool `mapstructure:"staging"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SQLite struct {
	Path string `mapstructure:"path"`
}

type Telegram struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type Indicators struct {
	RSIPeriod     int     `mapstructure:"rsi_period"`
	EMAPeriod     int     `mapstructure:"ema_period"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
	MACDPositive  float64 `mapstructure:"macd_positive"`
	MACDNegative  float64 `mapstructure:"macd_negative"`
}

type Signal struct {
	ExpirationMinutes int           `mapstructure:"expiration_minutes"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	// Gales holds the stake multiplier per gale level; its length fixes
	// the maximum gale level.
	Gales            []float64 `mapstructure:"gales"`
	OneSignalAtATime bool      `mapstructure:"one_signal_at_a_time"`
}

type Blackout struct {
	Enabled   bool `mapstructure:"enabled"`
	StartHour int  `mapstructure:"start_hour"`
	EndHour   int  `mapstructure:"end_hour"`
	// SuspendEvaluation pauses the expiration sweep during blackout as
	// well as generation.
	SuspendEvaluation bool `mapstructure:"suspend_evaluation"`
}

type Config struct {
	Pairs            []string      `mapstructure:"pairs"`
	AnalysisInterval time.Duration `mapstructure:"analysis_interval"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
	LogLevel         string        `mapstructure:"log_level"`

	Feed       Feed       `mapstructure:"feed"`
	Redis      Redis      `mapstructure:"redis"`
	SQLite     SQLite     `mapstructure:"sqlite"`
	Telegram   Telegram   `mapstructure:"telegram"`
	Indicators Indicators `mapstructure:"indicators"`
	Signal     Signal     `mapstructure:"signal"`
	Blackout   Blackout   `mapstructure:"blackout"`
}

// MaxGaleLevel is the highest gale level the lifecycle may reach.
func (c *Config) MaxGaleLevel() int {
	if len(c.Signal.Gales) == 0 {
		return 0
	}
	return len(c.Signal.Gales) - 1
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pairs", []string{"EURUSD", "GBPUSD", "USDJPY"})
	v.SetDefault("analysis_interval", "10s")
	v.SetDefault("metrics_addr", ":9100")
	v.SetDefault("log_level", "info")

	v.SetDefault("feed.url", "ws://localhost:8081/ws")
	v.SetDefault("feed.staging", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("sqlite.path", "signals.db")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("indicators.rsi_period", 14)
	v.SetDefault("indicators.ema_period", 20)
	v.SetDefault("indicators.rsi_oversold", 25)
	v.SetDefault("indicators.rsi_overbought", 75)
	v.SetDefault("indicators.macd_positive", 0)
	v.SetDefault("indicators.macd_negative", 0)

	v.SetDefault("signal.expiration_minutes", 1)
	v.SetDefault("signal.cooldown", "300s")
	v.SetDefault("signal.gales", []float64{1, 2, 4, 8})
	v.SetDefault("signal.one_signal_at_a_time", false)

	v.SetDefault("blackout.enabled", false)
	v.SetDefault("blackout.start_hour", 23)
	v.SetDefault("blackout.end_hour", 5)
	v.SetDefault("blackout.suspend_evaluation", true)
}

// Load reads configuration. The file named by CONFIG_FILE (if set) is read
// first; SIGNALBOT_* environment variables override it, e.g.
// SIGNALBOT_REDIS_ADDR overrides redis.addr.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIGNALBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return fmt.Errorf("pairs must not be empty")
	}
	if c.AnalysisInterval <= 0 {
		return fmt.Errorf("analysis_interval must be positive, got %v", c.AnalysisInterval)
	}
	if c.Indicators.RSIPeriod < 2 {
		return fmt.Errorf("indicators.rsi_period must be >= 2, got %d", c.Indicators.RSIPeriod)
	}
	if c.Indicators.EMAPeriod < 1 {
		return fmt.Errorf("indicators.ema_period must be >= 1, got %d", c.Indicators.EMAPeriod)
	}
	if c.Indicators.RSIOversold >= c.Indicators.RSIOverbought {
		return fmt.Errorf("indicators.rsi_oversold (%v) must be below rsi_overbought (%v)",
			c.Indicators.RSIOversold, c.Indicators.RSIOverbought)
	}
	if c.Signal.ExpirationMinutes < 1 {
		return fmt.Errorf("signal.expiration_minutes must be >= 1, got %d", c.Signal.ExpirationMinutes)
	}
	if len(c.Signal.Gales) == 0 {
		return fmt.Errorf("signal.gales must not be empty")
	}
	for i, g := range c.Signal.Gales {
		if g <= 0 {
			return fmt.Errorf("signal.gales[%d] must be positive, got %v", i, g)
		}
	}
	if h := c.Blackout.StartHour; h < 0 || h > 23 {
		return fmt.Errorf("blackout.start_hour out of range: %d", h)
	}
	if h := c.Blackout.EndHour; h < 0 || h > 23 {
		return fmt.Errorf("blackout.end_hour out of range: %d", h)
	}
	return nil
}
