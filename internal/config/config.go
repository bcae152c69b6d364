// Package config resolves docq settings from defaults, an optional config
// file, DOCQ_ environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/docq/internal/mongostore"
)

// EnvPrefix prefixes every environment variable: DOCQ_SQLITE_PATH maps to
// sqlite.path.
const EnvPrefix = "DOCQ"

// Backend selects the executor.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendMongo  Backend = "mongo"
)

// Keys accepted in config files, the environment and bound flags.
const (
	KeyBackend       = "backend"
	KeySQLitePath    = "sqlite.path"
	KeyMongoURI      = "mongo.uri"
	KeyMongoDatabase = "mongo.database"
	KeyMongoTimeout  = "mongo.timeout"
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
	KeyWorkers       = "workers"
)

// Config is the resolved configuration.
type Config struct {
	Backend Backend      `mapstructure:"backend"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
	Mongo   MongoConfig  `mapstructure:"mongo"`
	Log     LogConfig    `mapstructure:"log"`
	Workers int          `mapstructure:"workers"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type MongoConfig struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // text | json
}

// New returns a viper instance carrying the defaults and the DOCQ_
// environment binding. Callers bind flags on it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBackend, string(BackendSQLite))
	v.SetDefault(KeySQLitePath, "docq.db")
	v.SetDefault(KeyMongoURI, "mongodb://localhost:27017")
	v.SetDefault(KeyMongoDatabase, "docq")
	v.SetDefault(KeyMongoTimeout, mongostore.DefaultTimeout)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyWorkers, 4)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file into v when it is non-empty, then decodes and validates.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Backend = Backend(strings.ToLower(string(cfg.Backend)))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required for the sqlite backend"))
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the mongo backend"))
		}
		if c.Mongo.Database == "" {
			errs = append(errs, errors.New("mongo.database is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend %q: must be sqlite or mongo", c.Backend))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers %d: must be at least 1", c.Workers))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q: must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: must be debug, info, warn or error", l.Level)
	}
	return level, nil
}
