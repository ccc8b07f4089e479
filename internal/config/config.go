package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

// Config defines server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Seating SeatingConfig `yaml:"seating"`
	DB      DBConfig      `yaml:"db"`
	Redis   RedisConfig   `yaml:"redis"`
	Roster  RosterConfig  `yaml:"roster"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type SeatingConfig struct {
	Rules       seating.Rules     `yaml:"rules"`
	Algorithm   seating.Algorithm `yaml:"algorithm"`
	AutoBalance bool              `yaml:"auto_balance"`
}

// DBConfig enables snapshot persistence when URL is set.
type DBConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig enables the snapshot relay when Addr is set.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// RosterConfig enables the RabbitMQ roster consumer when URL is set.
type RosterConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
		Seating: SeatingConfig{
			Rules:       seating.DefaultRules(),
			Algorithm:   seating.AlgorithmRandom,
			AutoBalance: true,
		},
		Roster: RosterConfig{Queue: "seating.roster"},
	}
}

// Load reads configuration from a .env file, an optional YAML file and
// environment variables, in that order of increasing precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("SEATING_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("SEATING_ADDR", &cfg.Server.Addr)
	str("SEATING_LOG_LEVEL", &cfg.Log.Level)
	str("SEATING_DATABASE_URL", &cfg.DB.URL)
	str("SEATING_REDIS_ADDR", &cfg.Redis.Addr)
	str("SEATING_AMQP_URL", &cfg.Roster.URL)
	if v := os.Getenv("SEATING_ALGORITHM"); v != "" {
		cfg.Seating.Algorithm = seating.Algorithm(v)
	}

	var err error
	if v := os.Getenv("SEATING_AUTO_BALANCE"); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("invalid SEATING_AUTO_BALANCE: %w", perr))
		}
		cfg.Seating.AutoBalance = b
	}
	rules := &cfg.Seating.Rules
	err = multierr.Combine(err,
		num("SEATING_MAX_TABLES", &rules.MaxTables),
		num("SEATING_MIN_PER_TABLE", &rules.MinPlayersPerTable),
		num("SEATING_MAX_PER_TABLE", &rules.MaxPlayersPerTable),
		num("SEATING_BALANCE_THRESHOLD", &rules.BalanceThreshold),
	)
	return err
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	if c.Server.Addr == "" {
		err = multierr.Append(err, errors.New("server address is empty"))
	}
	if !c.Seating.Algorithm.Valid() {
		err = multierr.Append(err, fmt.Errorf("%w: %q", seating.ErrUnknownAlgorithm, c.Seating.Algorithm))
	}
	err = multierr.Append(err, c.Seating.Rules.Validate())
	return err
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
