package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"port"`
	DatabaseURL    string        `mapstructure:"database_url"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	MigrationsDir  string        `mapstructure:"migrations_dir"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "postgres://postgres:postgres@db:5432/bugtracker?sslmode=disable")
	v.SetDefault("jwt_secret", "dev-secret")
	v.SetDefault("jwt_ttl", 7*24*time.Hour)
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("log_level", "info")
	v.SetDefault("request_timeout", 5*time.Second)
}

// New returns a viper instance reading defaults, the optional config file and
// the environment, in increasing precedence. Flags may be bound on top.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("config: port is empty")
	case c.DatabaseURL == "":
		return errors.New("config: database_url is empty")
	case c.JWTSecret == "":
		return errors.New("config: jwt_secret is empty")
	case c.JWTTTL <= 0:
		return errors.New("config: jwt_ttl must be positive")
	case c.RequestTimeout <= 0:
		return errors.New("config: request_timeout must be positive")
	}
	return nil
}
