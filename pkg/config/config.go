// Package config provides a reusable loader for node configuration files
// and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"svmd/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a single node process.
type Config struct {
	Edge struct {
		ListenAddr      string `mapstructure:"listen_addr" json:"listen_addr"`
		ClockSkewMillis int64  `mapstructure:"clock_skew_millis" json:"clock_skew_millis"`
	} `mapstructure:"edge" json:"edge"`

	Admin struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"admin" json:"admin"`

	Storage struct {
		Backend string `mapstructure:"backend" json:"backend"` // "memory" or "leveldb"
		DBPath  string `mapstructure:"db_path" json:"db_path"`
	} `mapstructure:"storage" json:"storage"`

	VM struct {
		MaxSteps uint64 `mapstructure:"max_steps" json:"max_steps"` // 0 = unbounded
	} `mapstructure:"vm" json:"vm"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("edge.listen_addr", "0.0.0.0:4959")
	viper.SetDefault("edge.clock_skew_millis", 10000)
	viper.SetDefault("admin.listen_addr", "127.0.0.1:9090")
	viper.SetDefault("storage.backend", "memory")
	viper.SetDefault("storage.db_path", "./data/svmd")
	viper.SetDefault("vm.max_steps", 0)
	viper.SetDefault("logging.level", "info")
}

// Load reads configuration from ./config/<env>.yaml (or ./config/default.yaml
// when env is empty), overlays a .env file if present, then overlays
// SVM_-prefixed environment variables. The resulting configuration is
// stored in AppConfig and returned.
func Load(env string) (*Config, error) {
	setDefaults()

	_ = godotenv.Load()

	name := "default"
	if env != "" {
		name = env
	}
	viper.SetConfigName(name)
	viper.AddConfigPath("./config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, utils.Wrap(err, "load config")
		}
	}

	viper.SetEnvPrefix("SVM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SVM_ENV environment variable to
// select an overlay file (e.g. SVM_ENV=production -> config/production.yaml).
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SVM_ENV", ""))
}

// String renders the config for diagnostic logging.
func (c Config) String() string {
	return fmt.Sprintf("edge=%s admin=%s storage=%s(%s) max_steps=%d log=%s",
		c.Edge.ListenAddr, c.Admin.ListenAddr, c.Storage.Backend, c.Storage.DBPath, c.VM.MaxSteps, c.Logging.Level)
}
