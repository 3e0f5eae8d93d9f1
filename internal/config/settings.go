package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultAPIBaseURL     = "http://127.0.0.1:8787"
	defaultServerAddress  = "127.0.0.1:8787"
	defaultRequestTimeout = 10 * time.Second
	defaultSendTimeout    = 60 * time.Second
)

type Config struct {
	API     APIConfig     `toml:"api"`
	Logging LoggingConfig `toml:"logging"`
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	UI      UIConfig      `toml:"ui"`
}

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout string `toml:"request_timeout"`
	SendTimeout    string `toml:"send_timeout"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type ServerConfig struct {
	Address   string `toml:"address"`
	JWTSecret string `toml:"jwt_secret"`
}

// StoreConfig selects the local repository backend: "bbolt" or "file".
type StoreConfig struct {
	Backend string `toml:"backend"`
}

type UIConfig struct {
	Dark *bool `toml:"dark"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:        defaultAPIBaseURL,
			RequestTimeout: defaultRequestTimeout.String(),
			SendTimeout:    defaultSendTimeout.String(),
		},
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Address: defaultServerAddress},
		Store:   StoreConfig{Backend: "bbolt"},
	}
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFromPath(path)
}

func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func (c Config) APIBaseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if base == "" {
		return defaultAPIBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base
}

func (c Config) RequestTimeout() time.Duration {
	return parseDuration(c.API.RequestTimeout, defaultRequestTimeout)
}

func (c Config) SendTimeout() time.Duration {
	timeout := parseDuration(c.API.SendTimeout, defaultSendTimeout)
	if req := c.RequestTimeout(); timeout < req {
		return req
	}
	return timeout
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) ServerAddress() string {
	addr := strings.TrimSpace(c.Server.Address)
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return defaultServerAddress
	}
	return addr
}

func (c Config) JWTSecret() string {
	return strings.TrimSpace(c.Server.JWTSecret)
}

func (c Config) StoreBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if backend == "" {
		return "bbolt"
	}
	return backend
}

func (c Config) DarkMode() bool {
	if c.UI.Dark == nil {
		return true
	}
	return *c.UI.Dark
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}
