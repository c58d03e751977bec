package config

import (
	"github.com/kelseyhightower/envconfig"
)

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	Stream   string `envconfig:"REDIS_STREAM" default:"advisories"`
	// DB is processed last so an unparsable REDIS_DB leaves the other fields set
	DB int `envconfig:"REDIS_DB" default:"0"`
}

func GetRedisConfig() RedisConfig {
	var cfg RedisConfig
	if err := envconfig.Process("", &cfg); err != nil {
		cfg.DB = 0
	}
	return cfg
}

// Env holds process settings that are not part of config.yaml
type Env struct {
	ConfigPath string `envconfig:"CONFIG_PATH" default:"./config.yaml"`
	Debug      bool   `envconfig:"DEBUG" default:"false"`
}

// GetEnv reads the process settings from the environment
func GetEnv() (Env, error) {
	var env Env
	err := envconfig.Process("", &env)
	return env, err
}
