package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the kiosk's local configuration file. Everything has a usable
// default so a fresh install can start with no file at all.
type Config struct {
	DatabasePath  string `yaml:"databasePath"`
	ListenAddr    string `yaml:"listenAddr"`
	SessionSecret string `yaml:"sessionSecret"` // base64, HS256 session signing
	SessionTTL    int    `yaml:"sessionTtlMinutes"`
	LogLevel      string `yaml:"logLevel"` // silent, error, warn, info
}

const DefaultPath = "vms.yaml"

var (
	once    sync.Once
	loaded  Config
	loadErr error
)

func defaults() Config {
	return Config{
		DatabasePath: "data/visitor_management.db",
		ListenAddr:   "127.0.0.1:8090",
		SessionTTL:   12 * 60,
		LogLevel:     "warn",
	}
}

// Load reads the configuration file once per process. A missing file is not
// an error; defaults apply.
func Load(path string) (Config, error) {
	once.Do(func() {
		loaded = defaults()

		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return
			}
			loadErr = fmt.Errorf("read config %s: %w", path, err)
			return
		}
		if err := yaml.Unmarshal(raw, &loaded); err != nil {
			loadErr = fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	})
	return loaded, loadErr
}

// Parse decodes a config document without touching the process-wide cache.
func Parse(raw []byte) (Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// SessionDuration returns the session lifetime as a time.Duration.
func (c Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Minute
}
