package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file or individual keys are absent.
const (
	DefaultPort          = "8000"
	DefaultTeacherSecret = "profesor2026"
	DefaultSnapshotPath  = "data/class_snapshot.json"
	DefaultClassID       = "default"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Auth struct {
		TeacherSecret string `yaml:"teacher_secret"`
	} `yaml:"auth"`
	Class struct {
		ID string `yaml:"id"`
	} `yaml:"class"`
	Snapshot struct {
		Path string `yaml:"path"`
	} `yaml:"snapshot"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// Load reads YAML config from path. A missing file yields the defaults so
// the server can start bare in development.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return withDefaults(cfg), nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return withDefaults(cfg), nil
}

func withDefaults(cfg Config) Config {
	if cfg.Server.Port == "" {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Auth.TeacherSecret == "" {
		cfg.Auth.TeacherSecret = DefaultTeacherSecret
	}
	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = DefaultSnapshotPath
	}
	if cfg.Class.ID == "" {
		cfg.Class.ID = DefaultClassID
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return cfg
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
