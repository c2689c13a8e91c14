package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ecoleta-cli/nav"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "ECOLETA"
	configName = "config"
	appDir     = "ecoleta-cli"
)

// Config holds application configuration.
type Config struct {
	API     APIConfig
	Cache   CacheConfig
	Log     LogConfig
	Nav     NavConfig
	History HistoryConfig
}

// APIConfig holds IBGE client settings.
type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Dir     string        `mapstructure:"dir"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

type NavConfig struct {
	Route string `mapstructure:"route"`
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// FlagKeys maps flag names to configuration keys for the flags Load binds.
var FlagKeys = map[string]string{
	"api-base-url": "api.base_url",
	"cache":        "cache.enabled",
	"log-file":     "log.file",
	"debug":        "log.debug",
	"route":        "nav.route",
}

// Load reads configuration from defaults, an optional TOML file, env vars
// prefixed ECOLETA_ and the flags in FlagKeys, in increasing precedence.
// An explicit path must exist; the default path is optional.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("api.base_url", "https://servicodados.ibge.gov.br/api/v1/localidades")
	v.SetDefault("api.timeout", 12*time.Second)
	v.SetDefault("api.max_attempts", 3)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", 7*24*time.Hour)
	v.SetDefault("cache.dir", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.debug", false)
	v.SetDefault("nav.route", nav.RoutePoints)
	v.SetDefault("history.enabled", true)

	v.SetConfigType("toml")

	explicit := strings.TrimSpace(path)
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG"))
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, appDir))
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
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
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if strings.TrimSpace(c.Nav.Route) == "" {
		c.Nav.Route = nav.RoutePoints
	}
	return c, nil
}
