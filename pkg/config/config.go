// Package config defines the runtime configuration and its defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/osstelecom/topoweak/pkg/algorithm"
	"github.com/osstelecom/topoweak/pkg/impact"
)

// EnvPrefix prefixes every environment override, e.g. TOPOWEAK_ANALYSIS_WORKERS.
const EnvPrefix = "TOPOWEAK"

// Config is the root configuration.
type Config struct {
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// AnalysisConfig holds the weak-node analysis parameters.
type AnalysisConfig struct {
	// ConnectionLimit is the number of independent routes a node needs.
	ConnectionLimit int `mapstructure:"connection_limit"`
	// Workers is the number of goroutines draining the job queue.
	Workers  int  `mapstructure:"workers"`
	UseCache bool `mapstructure:"use_cache"`
	// Exhaustive also computes the failure impact of every weak node.
	Exhaustive bool   `mapstructure:"exhaustive"`
	Strategy   string `mapstructure:"strategy"`
	// Timeout bounds a single analysis; zero means no deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Load lists topology sources registered at startup.
	Load []string `mapstructure:"load"`
	// Watch reloads local sources when they change on disk.
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type TelemetryConfig struct {
	// Endpoint is an OTLP/HTTP URL; empty falls back to OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint string `mapstructure:"endpoint"`
	Disabled bool   `mapstructure:"disabled"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// PolicyConfig holds CEL rules applied to nodes while loading a topology.
type PolicyConfig struct {
	EndpointRules []string `mapstructure:"endpoint_rules"`
	DisabledRules []string `mapstructure:"disabled_rules"`
}

type StorageConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the S3 endpoint, e.g. for LocalStack.
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	p := impact.DefaultParams()
	return Config{
		Analysis: AnalysisConfig{
			ConnectionLimit: p.ConnectionLimit,
			Workers:         p.Workers,
			UseCache:        p.UseCache,
			Strategy:        string(algorithm.DefaultStrategy),
			Timeout:         5 * time.Minute,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			Debounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  true,
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
	}
}

// SetDefaults registers Default() with v so every key is known to viper,
// which AutomaticEnv needs to resolve nested keys from the environment.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("analysis.connection_limit", d.Analysis.ConnectionLimit)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.use_cache", d.Analysis.UseCache)
	v.SetDefault("analysis.exhaustive", d.Analysis.Exhaustive)
	v.SetDefault("analysis.strategy", d.Analysis.Strategy)
	v.SetDefault("analysis.timeout", d.Analysis.Timeout)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.load", d.Server.Load)
	v.SetDefault("server.watch", d.Server.Watch)
	v.SetDefault("server.debounce", d.Server.Debounce)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.disabled", d.Telemetry.Disabled)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("policy.endpoint_rules", d.Policy.EndpointRules)
	v.SetDefault("policy.disabled_rules", d.Policy.DisabledRules)
	v.SetDefault("storage.region", d.Storage.Region)
	v.SetDefault("storage.endpoint", d.Storage.Endpoint)
	v.SetDefault("storage.use_path_style", d.Storage.UsePathStyle)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the analysis section the same way an analysis would.
func (c Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}
	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("analysis config: timeout %s must not be negative", c.Analysis.Timeout)
	}
	return nil
}

// Params converts the analysis section into impact parameters.
func (c Config) Params() impact.Params {
	return impact.Params{
		ConnectionLimit: c.Analysis.ConnectionLimit,
		Exhaustive:      c.Analysis.Exhaustive,
		Workers:         c.Analysis.Workers,
		UseCache:        c.Analysis.UseCache,
		Strategy:        algorithm.Strategy(c.Analysis.Strategy),
	}
}
