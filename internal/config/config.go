package config

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the YAML file leaves a field empty
const (
	DefaultHorizon       = 37
	DefaultHistoryDays   = 30
	DefaultPrecision     = 4
	DefaultLongTermDays  = 30
	DefaultRemoteTimeout = 60 * time.Second
	DefaultServerAddr    = ":8080"
)

// Forecast provider variants
const (
	ProviderLive        = "live"
	ProviderPrecomputed = "precomputed"
	ProviderBackfill    = "backfill"
	ProviderRemote      = "remote"
)

var defaultOpenMeteoFields = map[string]string{
	"rainfall":  "precipitation",
	"windspeed": "wind_speed_10m",
}

var (
	instance *Config
	once     sync.Once
)

// VariableConfig describes one observed variable (rainfall, windspeed)
type VariableConfig struct {
	Title            string   `yaml:"title" validate:"required"`
	Unit             string   `yaml:"unit"`
	CSV              string   `yaml:"csv" validate:"required"`
	ModelFile        string   `yaml:"model_file"`
	ScalerTarget     string   `yaml:"scaler_target"`
	ScalerCovariate  string   `yaml:"scaler_cov"`
	ForecastCSV      string   `yaml:"forecast_csv"`
	Aggregation      string   `yaml:"agg" validate:"oneof=sum mean"`
	Color            string   `yaml:"color"`
	WarningThreshold *float64 `yaml:"warning_threshold"`
	// OpenMeteoField is the hourly field imported by the collector
	OpenMeteoField string `yaml:"open_meteo_field"`
}

type SiteConfig struct {
	Name      string  `yaml:"name" validate:"required"`
	Latitude  float64 `yaml:"latitude" validate:"latitude"`
	Longitude float64 `yaml:"longitude" validate:"longitude"`
	Timezone  string  `yaml:"timezone"`
}

type RemoteConfig struct {
	InputStream  string        `yaml:"input_stream"`
	OutputStream string        `yaml:"output_stream"`
	Timeout      time.Duration `yaml:"timeout"`
}

type ForecastConfig struct {
	Provider    string `yaml:"provider" validate:"oneof=live precomputed backfill remote"`
	Horizon     int    `yaml:"horizon" validate:"gte=1,lte=366"`
	Fallback    string `yaml:"fallback" validate:"oneof=zeros mean"`
	HistoryDays int    `yaml:"history_days" validate:"gte=1"`
	// Precision is the decimals written to exports; 0 is a valid setting
	Precision *int         `yaml:"precision" validate:"omitempty,gte=0,lte=10"`
	FromToday bool         `yaml:"from_today"`
	RateLimit float64      `yaml:"rate_limit" validate:"gte=0"`
	Remote    RemoteConfig `yaml:"remote"`
}

type AdvisoryConfig struct {
	Extended bool `yaml:"extended"`
	// LongTermDays limits the long-term window; 0 keeps every remaining day
	LongTermDays *int `yaml:"long_term_days" validate:"omitempty,gte=0"`
}

type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

type PublishConfig struct {
	Enabled bool `yaml:"enabled"`
}

type DatabaseConfig struct {
	Enabled bool `yaml:"enabled"`
}

type CollectConfig struct {
	PastDays int `yaml:"past_days" validate:"gte=0,lte=92"`
	// Interval keeps the collector running, fetching again on every tick
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
}

// Config is the service configuration read from config.yaml
type Config struct {
	Site      SiteConfig                `yaml:"site"`
	Variables map[string]VariableConfig `yaml:"variables" validate:"required,dive"`
	Forecast  ForecastConfig            `yaml:"forecast"`
	Advisory  AdvisoryConfig            `yaml:"advisory"`
	Server    ServerConfig              `yaml:"server"`
	Publish   PublishConfig             `yaml:"publish"`
	Database  DatabaseConfig            `yaml:"database"`
	Collect   CollectConfig             `yaml:"collect"`
	Log       struct {
		Debug bool `yaml:"debug"`
	} `yaml:"log"`
}

// Load reads, defaults and validates the config file once per process
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		// a missing .env is fine
		_ = godotenv.Load()

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file %s: %w", configPath, readErr)
			return
		}

		instance, err = Parse(data)
	})

	return instance, err
}

// Parse decodes YAML config data, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

func (c *Config) applyDefaults() {
	if c.Forecast.Provider == "" {
		c.Forecast.Provider = ProviderLive
	}
	if c.Forecast.Horizon == 0 {
		c.Forecast.Horizon = DefaultHorizon
	}
	if c.Forecast.Fallback == "" {
		c.Forecast.Fallback = "zeros"
	}
	if c.Forecast.HistoryDays == 0 {
		c.Forecast.HistoryDays = DefaultHistoryDays
	}
	if c.Forecast.Precision == nil {
		precision := DefaultPrecision
		c.Forecast.Precision = &precision
	}
	if c.Forecast.Remote.InputStream == "" {
		c.Forecast.Remote.InputStream = "model_input"
	}
	if c.Forecast.Remote.OutputStream == "" {
		c.Forecast.Remote.OutputStream = "model_output"
	}
	if c.Forecast.Remote.Timeout == 0 {
		c.Forecast.Remote.Timeout = DefaultRemoteTimeout
	}
	if c.Advisory.LongTermDays == nil {
		days := DefaultLongTermDays
		c.Advisory.LongTermDays = &days
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Collect.PastDays == 0 {
		c.Collect.PastDays = 7
	}
	for name, v := range c.Variables {
		if v.OpenMeteoField == "" {
			v.OpenMeteoField = defaultOpenMeteoFields[name]
			c.Variables[name] = v
		}
	}
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, name := range []string{"rainfall", "windspeed"} {
		if _, ok := c.Variables[name]; !ok {
			return fmt.Errorf("variables.%s is required", name)
		}
	}

	for _, name := range c.VariableNames() {
		v := c.Variables[name]
		switch c.Forecast.Provider {
		case ProviderLive, ProviderBackfill:
			if v.ModelFile == "" {
				return fmt.Errorf("variables.%s.model_file is required for the %s provider", name, c.Forecast.Provider)
			}
		case ProviderPrecomputed:
			if v.ForecastCSV == "" {
				return fmt.Errorf("variables.%s.forecast_csv is required for the precomputed provider", name)
			}
		}
	}
	return nil
}

// VariableNames returns the configured variable names in a stable order
func (c *Config) VariableNames() []string {
	names := make([]string, 0, len(c.Variables))
	for name := range c.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Precision dereferences the export precision
func (c *Config) Precision() int {
	if c.Forecast.Precision == nil {
		return DefaultPrecision
	}
	return *c.Forecast.Precision
}

// LongTermDays dereferences the advisory long-term window
func (c *Config) LongTermDays() int {
	if c.Advisory.LongTermDays == nil {
		return DefaultLongTermDays
	}
	return *c.Advisory.LongTermDays
}
