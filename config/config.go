package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

var ErrParsingEnvFailed = errors.New("parsing environment configuration failed")

// EngineConfig holds the tunables of the dispatch engine.
type EngineConfig struct {
	ShardCount      uint          `env:"DISPATCH_SHARD_COUNT" envDefault:"8"`
	LaneCapacity    int           `env:"DISPATCH_LANE_CAPACITY" envDefault:"1024"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"10s"`
	PostponeDelay   time.Duration `env:"DISPATCH_POSTPONE_DELAY" envDefault:"5ms"`
	PostgresDSN     string        `env:"DISPATCH_POSTGRES_DSN"`

	// PostgresReplicaDSN points reads of the entity store at a read replica.
	// Empty means all reads go to the primary.
	PostgresReplicaDSN string `env:"DISPATCH_POSTGRES_REPLICA_DSN"`
}

// EngineConfigFromEnv loads the engine configuration from environment variables.
func EngineConfigFromEnv() (EngineConfig, error) {
	var cfg EngineConfig

	if err := env.Parse(&cfg); err != nil {
		return EngineConfig{}, errors.Join(ErrParsingEnvFailed, err)
	}

	return cfg, nil
}

// ParseEnv loads configuration from environment variables into target, for
// userland config structs that extend EngineConfig.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return errors.Join(ErrParsingEnvFailed, err)
	}

	return nil
}
