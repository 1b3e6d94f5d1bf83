package platform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "DOCPROV"
	configBaseName = "docprov"
)

type Config struct {
	MongoDB   MongoConfig     `mapstructure:"mongodb"`
	Store     string          `mapstructure:"store"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	Log       LogConfig       `mapstructure:"log"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Provision ProvisionConfig `mapstructure:"provision"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type JournalConfig struct {
	Path string `mapstructure:"path"`
	// Fast opens the journal in WAL mode with synchronous=NORMAL.
	Fast bool `mapstructure:"fast"`
}

type MetricsConfig struct {
	File string `mapstructure:"file"`
}

type ProvisionConfig struct {
	OnConflict string `mapstructure:"on_conflict"`
}

func (c Config) FileSink() FileSink {
	return FileSink{
		Path:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAge,
	}
}

// LoadConfig merges, from lowest to highest precedence: defaults, the config
// file, DOCPROV_* environment variables, and flags the user actually set.
// bindings maps config keys to flag names in flags.
func LoadConfig(path string, flags *pflag.FlagSet, bindings map[string]string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := strings.TrimSpace(path) != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configBaseName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range bindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "shop")
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)

	v.SetDefault("store", "mongo")
	v.SetDefault("timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	v.SetDefault("journal.path", "")
	v.SetDefault("journal.fast", false)
	v.SetDefault("metrics.file", "")
	v.SetDefault("provision.on_conflict", "reject")
}
