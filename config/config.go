package config

import (
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// AppName is the name of the application
var AppName = "monoforge"

// DefaultDataDir is the path to the data directory
var DefaultDataDir = os.ExpandEnv("$HOME/." + AppName)

// AppEnvPrefix is used as the prefix for environment variables
var AppEnvPrefix = AppName

// DefaultDefaultBranch is the name advertised as the monorepo's default branch
const DefaultDefaultBranch = "main"

// DefaultMQWorkers is the default size of the message queue's worker pool
const DefaultMQWorkers = 12

// DefaultUnpackBatchSize is the number of pack entries persisted per storage batch
const DefaultUnpackBatchSize = 1000

// AppConfig holds the runtime configuration of the monorepo core.
type AppConfig struct {
	// DataDir is the root directory for local state (e.g. sqlite fallback file)
	DataDir string `mapstructure:"data_dir"`

	// DSN is the relational database connection string (e.g. postgres DSN)
	DSN string `mapstructure:"dsn"`

	// Driver selects the gorm dialector: "postgres" or "sqlite"
	Driver string `mapstructure:"driver"`

	// DefaultBranch is the name advertised for synthetic head refs
	DefaultBranch string `mapstructure:"default_branch"`

	// MQWorkers is the number of workers in the message queue pool
	MQWorkers int `mapstructure:"mq_workers"`

	// UnpackBatchSize is the number of entries flushed per batch_save_entries call
	UnpackBatchSize int `mapstructure:"unpack_batch_size"`

	// Addr is the listening address of the pack-exchange HTTP front-end
	Addr string `mapstructure:"addr"`
}

// EmptyAppConfig returns an AppConfig populated with defaults.
func EmptyAppConfig() *AppConfig {
	dataDir, err := homedir.Expand(DefaultDataDir)
	if err != nil {
		dataDir = DefaultDataDir
	}
	return &AppConfig{
		DataDir:         dataDir,
		Driver:          "sqlite",
		DSN:             "file::memory:?cache=shared",
		DefaultBranch:   DefaultDefaultBranch,
		MQWorkers:       DefaultMQWorkers,
		UnpackBatchSize: DefaultUnpackBatchSize,
		Addr:            ":9002",
	}
}

// Load reads configuration from a file (if cfgFile is non-empty), then
// environment variables prefixed with AppEnvPrefix, into an AppConfig
// seeded with defaults.
func Load(cfgFile string) (*AppConfig, error) {
	cfg := EmptyAppConfig()

	v := viper.New()
	v.SetEnvPrefix(AppEnvPrefix)
	v.AutomaticEnv()
	for _, key := range []string{"data_dir", "dsn", "driver", "default_branch", "mq_workers", "unpack_batch_size", "addr"} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrap(err, "failed to bind environment variable")
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse configuration")
	}

	return cfg, nil
}
