package redisidentity

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
)

// RedisConfig holds the connection settings for the backing store.
type RedisConfig struct {
	Addr        string        `env:"ADDR" envDefault:"localhost:6379"`
	Password    string        `env:"PASSWORD"`
	DB          int           `env:"DB" envDefault:"0"`
	PoolSize    int           `env:"POOL_SIZE" envDefault:"10"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
}

// Config is the store's full configuration.
type Config struct {
	Redis RedisConfig `envPrefix:"REDIS_"`
}

// LoadConfig reads configuration from the environment, applying defaults
// for anything unset.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse environment: %v", ErrInvalidArgument, err)
	}
	return cfg, nil
}

// Validate checks the configuration before any connection is attempted.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c.Redis,
		validation.Field(&c.Redis.Addr, validation.Required),
		validation.Field(&c.Redis.DB, validation.Min(0)),
		validation.Field(&c.Redis.PoolSize, validation.Required, validation.Min(1)),
		validation.Field(&c.Redis.DialTimeout, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}
