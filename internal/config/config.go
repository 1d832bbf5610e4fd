package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configType     = "toml"
	configName     = "config"
	configDirName  = "jcblock"
	envPrefix      = "JCBLOCK"
	configFileMode = 0o644
	configDirMode  = 0o755
)

var ErrConfigExists = errors.New("config file already exists")

type Config struct {
	Modem   ModemConfig   `toml:"modem" mapstructure:"modem"`
	Lists   ListsConfig   `toml:"lists" mapstructure:"lists"`
	CallLog CallLogConfig `toml:"calllog" mapstructure:"calllog"`
	Purge   PurgeConfig   `toml:"purge" mapstructure:"purge"`
	Logging LoggingConfig `toml:"logging" mapstructure:"logging"`
}

type ModemConfig struct {
	Port string `toml:"port" mapstructure:"port"`
	Baud int    `toml:"baud" mapstructure:"baud"`
}

type ListsConfig struct {
	Allow string `toml:"allow" mapstructure:"allow"`
	Block string `toml:"block" mapstructure:"block"`
}

type CallLogConfig struct {
	Path string `toml:"path" mapstructure:"path"`
}

type PurgeConfig struct {
	Interval     string `toml:"interval" mapstructure:"interval"`
	LifetimeDays int    `toml:"lifetime_days" mapstructure:"lifetime_days"`
}

type LoggingConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
}

func Default() Config {
	return Config{
		Modem:   ModemConfig{Port: "/dev/ttyACM0", Baud: 1200},
		Lists:   ListsConfig{Allow: "allowlist.dat", Block: "blocklist.dat"},
		CallLog: CallLogConfig{Path: "calllog.log"},
		Purge:   PurgeConfig{Interval: "24h", LifetimeDays: 270},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// PurgeInterval is the time between two purges of the block list.
func (c Config) PurgeInterval() time.Duration {
	d, err := time.ParseDuration(c.Purge.Interval)
	if err != nil {
		return 0
	}
	return d
}

// Lifetime is how long a block list entry may go unmatched.
func (c Config) Lifetime() time.Duration {
	return time.Duration(c.Purge.LifetimeDays) * 24 * time.Hour
}

func (c Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// DefaultPath is ~/.config/jcblock/config.toml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".config", configDirName, configName+"."+configType), nil
}

// Load reads path, or the default config file when path is empty, on top of
// the defaults and applies JCBLOCK_* environment overrides. A missing default
// file is not an error; a missing explicit file is.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)
	v.SetConfigType(configType)

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return Config{}, fmt.Errorf("expand config path: %w", err)
		}
		if _, err := os.Stat(expanded); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		v.AddConfigPath(filepath.Dir(defaultPath))
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("modem.port", d.Modem.Port)
	v.SetDefault("modem.baud", d.Modem.Baud)
	v.SetDefault("lists.allow", d.Lists.Allow)
	v.SetDefault("lists.block", d.Lists.Block)
	v.SetDefault("calllog.path", d.CallLog.Path)
	v.SetDefault("purge.interval", d.Purge.Interval)
	v.SetDefault("purge.lifetime_days", d.Purge.LifetimeDays)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

func (c *Config) expandPaths() error {
	for _, path := range []*string{&c.Lists.Allow, &c.Lists.Block, &c.CallLog.Path, &c.Modem.Port} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", *path, err)
		}
		*path = expanded
	}

	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Modem.Port) == "" {
		return errors.New("modem.port is empty")
	}
	if c.Modem.Baud <= 0 {
		return fmt.Errorf("modem.baud must be positive, got %d", c.Modem.Baud)
	}
	if c.Lists.Allow == "" || c.Lists.Block == "" {
		return errors.New("lists.allow and lists.block must be set")
	}
	if c.CallLog.Path == "" {
		return errors.New("calllog.path is empty")
	}
	if d, err := time.ParseDuration(c.Purge.Interval); err != nil || d <= 0 {
		return fmt.Errorf("purge.interval %q is not a positive duration", c.Purge.Interval)
	}
	if c.Purge.LifetimeDays <= 0 {
		return fmt.Errorf("purge.lifetime_days must be positive, got %d", c.Purge.LifetimeDays)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// WriteDefault writes the default config to path. An existing file is kept
// unless force is set.
func WriteDefault(path string, force bool) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expand config path: %w", err)
	}

	data, err := Default().Encode()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, configFileMode); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}
