package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/replaykit/replay/internal/core"
)

// Config is the full application configuration.
type Config struct {
	Backtest   BacktestConfig   `mapstructure:"backtest"`
	Strategies StrategiesConfig `mapstructure:"strategies"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Store      StoreConfig      `mapstructure:"store"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// BacktestConfig holds the simulation and reporting parameters.
type BacktestConfig struct {
	InitialCapital      float64 `mapstructure:"initial_capital"`
	TransactionCostRate float64 `mapstructure:"transaction_cost_rate"`
	SlippageRate        float64 `mapstructure:"slippage_rate"`
	RiskFreeRate        float64 `mapstructure:"risk_free_rate"`
	PeriodsPerYear      int     `mapstructure:"periods_per_year"`
	Leverage            float64 `mapstructure:"leverage"`
	LeverageClip        float64 `mapstructure:"leverage_clip"`
	MetricBound         float64 `mapstructure:"metric_bound"`
	DrawdownFloor       float64 `mapstructure:"drawdown_floor"`
	Workers             int     `mapstructure:"workers"`
}

// StrategiesConfig holds per-variant parameters.
type StrategiesConfig struct {
	Crossover CrossoverConfig `mapstructure:"crossover"`
	Rotation  RotationConfig  `mapstructure:"rotation"`
}

// CrossoverConfig parameterizes the RSI/MACD/MA-cross variant.
type CrossoverConfig struct {
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	FastPeriod    int     `mapstructure:"fast_period"`
	SlowPeriod    int     `mapstructure:"slow_period"`
}

// RotationConfig parameterizes the trend-rotation variant.
type RotationConfig struct {
	Periods []int `mapstructure:"periods"`
}

// ProviderConfig holds data-provider settings.
type ProviderConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	MaxAttempts       int `mapstructure:"max_attempts"`
	BackoffSeconds    int `mapstructure:"backoff_seconds"`
}

// StoreConfig holds run-history settings.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ArchiveConfig holds report-archive settings.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // for localfs
	Format  string   `mapstructure:"format"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config holds S3 archive settings.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds sweep instrumentation settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from a file with environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand ${VAR} references in string values.
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns the configuration used when no file is supplied.
func Defaults() *Config {
	return &Config{
		Backtest: BacktestConfig{
			InitialCapital:      100_000,
			TransactionCostRate: 0.001,
			SlippageRate:        0.0005,
			RiskFreeRate:        0.02,
			PeriodsPerYear:      252,
			Leverage:            3,
			LeverageClip:        0.3,
			MetricBound:         1e6,
			DrawdownFloor:       -0.99,
		},
		Strategies: StrategiesConfig{
			Crossover: CrossoverConfig{
				RSIOverbought: 70,
				RSIOversold:   30,
				FastPeriod:    20,
				SlowPeriod:    50,
			},
			Rotation: RotationConfig{
				Periods: []int{30, 60, 120, 200},
			},
		},
		Provider: ProviderConfig{
			RequestsPerMinute: 60,
			MaxAttempts:       3,
			BackoffSeconds:    2,
		},
		Archive: ArchiveConfig{
			Type:   "localfs",
			Path:   "archive",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	bt := c.Backtest
	if bt.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %g", bt.InitialCapital))
	}
	if bt.TransactionCostRate < 0 || bt.SlippageRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cost rates cannot be negative, got %g/%g", bt.TransactionCostRate, bt.SlippageRate))
	}
	if bt.PeriodsPerYear <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("periods_per_year must be positive, got %d", bt.PeriodsPerYear))
	}
	if bt.LeverageClip <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("leverage_clip must be positive, got %g", bt.LeverageClip))
	}

	cr := c.Strategies.Crossover
	if cr.RSIOversold >= cr.RSIOverbought {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rsi_oversold %g must be below rsi_overbought %g", cr.RSIOversold, cr.RSIOverbought))
	}
	if cr.FastPeriod <= 0 || cr.SlowPeriod <= cr.FastPeriod {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("need 0 < fast_period < slow_period, got %d/%d", cr.FastPeriod, cr.SlowPeriod))
	}

	for _, p := range c.Strategies.Rotation.Periods {
		if p <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("rotation periods must be positive, got %d", p))
		}
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("s3 bucket required when archive type is s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	return nil
}
