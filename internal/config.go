package internal

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// DefaultNumBufs is used when the pool size is left unset.
const DefaultNumBufs = 128

type Config struct {
	AppName string `mapstructure:"app_name"`

	Pool struct {
		NumBufs int `mapstructure:"num_bufs"`
	} `mapstructure:"pool"`

	Storage struct {
		Workdir string `mapstructure:"workdir"`
	} `mapstructure:"storage"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Pool.NumBufs == 0 {
		c.Pool.NumBufs = DefaultNumBufs
	}
}

func (c *Config) Validate() error {
	if c.Pool.NumBufs < 1 {
		return fmt.Errorf("config: pool.num_bufs must be >= 1, got %d", c.Pool.NumBufs)
	}
	if c.Storage.Workdir == "" {
		return errors.New("config: storage.workdir must be set")
	}
	return nil
}
