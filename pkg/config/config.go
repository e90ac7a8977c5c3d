// Package config loads the engine's own configuration: the knobs the
// engine and cmd/matchcore-bench need, nothing belonging to the
// out-of-scope adapter/auth/persistence layers (spec.md §1).
package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"github.com/quantedge/matchcore/pkg/types"
)

// Config is the engine's own configuration surface.
type Config struct {
	Engine EngineConfig `mapstructure:"engine"`
	Bench  BenchConfig  `mapstructure:"bench"`
}

// EngineConfig configures a newly-constructed engine.
type EngineConfig struct {
	// InitialMarketState is the market state the engine starts in.
	InitialMarketState string `mapstructure:"initial_market_state"`
	// LogLevel controls the verbosity of pkg/logging.
	LogLevel string `mapstructure:"log_level"`
}

// BenchConfig configures cmd/matchcore-bench.
type BenchConfig struct {
	Instruments   int    `mapstructure:"instruments"`
	TargetRatePerSec int `mapstructure:"target_rate_per_sec"`
	DurationSeconds  int `mapstructure:"duration_seconds"`
	Workers          int `mapstructure:"workers"`
}

var (
	loaded *Config
	once   sync.Once
	loadErr error
)

// Default returns the engine's built-in defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			InitialMarketState: string(types.Closed),
			LogLevel:           "info",
		},
		Bench: BenchConfig{
			Instruments:      4,
			TargetRatePerSec: 10000,
			DurationSeconds:  10,
			Workers:          8,
		},
	}
}

// Load reads configuration from configPath (if non-empty), environment
// variables prefixed MATCHCORE_, and falls back to Default() values for
// anything unset. It is safe to call concurrently; the first call wins.
func Load(configPath string) (*Config, error) {
	once.Do(func() {
		cfg := Default()

		v := viper.New()
		v.SetConfigType("yaml")
		v.SetEnvPrefix("MATCHCORE")
		v.AutomaticEnv()

		v.SetDefault("engine.initial_market_state", cfg.Engine.InitialMarketState)
		v.SetDefault("engine.log_level", cfg.Engine.LogLevel)
		v.SetDefault("bench.instruments", cfg.Bench.Instruments)
		v.SetDefault("bench.target_rate_per_sec", cfg.Bench.TargetRatePerSec)
		v.SetDefault("bench.duration_seconds", cfg.Bench.DurationSeconds)
		v.SetDefault("bench.workers", cfg.Bench.Workers)

		if configPath != "" {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				loadErr = fmt.Errorf("config: reading %s: %w", configPath, err)
				return
			}
		}

		if err := v.Unmarshal(cfg); err != nil {
			loadErr = fmt.Errorf("config: unmarshal: %w", err)
			return
		}

		loaded = cfg
	})

	return loaded, loadErr
}

// MarketState parses Engine.InitialMarketState, defaulting to Closed on
// an unrecognized value so a malformed config fails closed rather than
// open.
func (c *Config) MarketState() types.MarketState {
	switch types.MarketState(c.Engine.InitialMarketState) {
	case types.Open:
		return types.Open
	case types.Halted:
		return types.Halted
	default:
		return types.Closed
	}
}
