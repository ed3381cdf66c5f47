package conf

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultPort        = "3000"
	DefaultDatabaseURL = "postgres://localhost:5432/kilovolt"
	DefaultPublicDir   = "./public"
	DefaultFixture     = "data/hackerIpsum.json"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

type ServerConfig struct {
	Port      string `mapstructure:"port"`
	PublicDir string `mapstructure:"public_dir"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type SeedConfig struct {
	Enable  bool   `mapstructure:"enable"`
	Fixture string `mapstructure:"fixture"` // relative to server.public_dir
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.public_dir", DefaultPublicDir)
	v.SetDefault("database.url", DefaultDatabaseURL)
	v.SetDefault("database.max_open_conns", 30)
	v.SetDefault("database.max_idle_conns", 15)
	v.SetDefault("database.log_level", "warning")
	v.SetDefault("seed.enable", true)
	v.SetDefault("seed.fixture", DefaultFixture)
}

// LoadConfig 加载配置
// path may be empty or point at a missing file; defaults and environment
// variables still apply. PORT, DATABASE_URL and PUBLIC_DIR override the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("KILOVOLT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // KILOVOLT_SERVER_PORT, KILOVOLT_DATABASE_URL ...

	for key, env := range map[string]string{
		"server.port":       "PORT",
		"server.public_dir": "PUBLIC_DIR",
		"database.url":      "DATABASE_URL",
	} {
		if err := v.BindEnv(key, "KILOVOLT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !isMissing(err) {
			return nil, err
		}
	}

	// 显式展开环境变量
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Database.URL == "" {
		c.Database.URL = DefaultDatabaseURL
	}
	return &c, nil
}

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
