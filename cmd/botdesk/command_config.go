package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"botdesk/internal/config"
)

type ConfigCommand struct {
	stdout io.Writer
	stderr io.Writer
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

type configOutput struct {
	ConfigPath string                `json:"config_path,omitempty" toml:"config_path,omitempty"`
	StorePath  string                `json:"store_path,omitempty" toml:"store_path,omitempty"`
	LogPath    string                `json:"log_path,omitempty" toml:"log_path,omitempty"`
	API        effectiveAPIConfig    `json:"api" toml:"api"`
	Logging    effectiveLogConfig    `json:"logging" toml:"logging"`
	Server     effectiveServerConfig `json:"server" toml:"server"`
	Store      effectiveStoreConfig  `json:"store" toml:"store"`
	UI         effectiveUIConfig     `json:"ui" toml:"ui"`
}

type effectiveAPIConfig struct {
	BaseURL        string `json:"base_url" toml:"base_url"`
	RequestTimeout string `json:"request_timeout" toml:"request_timeout"`
	SendTimeout    string `json:"send_timeout" toml:"send_timeout"`
}

type effectiveLogConfig struct {
	Level string `json:"level" toml:"level"`
}

type effectiveServerConfig struct {
	Address      string `json:"address" toml:"address"`
	JWTSecretSet bool   `json:"jwt_secret_set" toml:"jwt_secret_set"`
}

type effectiveStoreConfig struct {
	Backend string `json:"backend" toml:"backend"`
}

type effectiveUIConfig struct {
	Dark bool `json:"dark" toml:"dark"`
}

func NewConfigCommand(stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{
		stdout: stdout,
		stderr: stderr,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	payload, err := buildConfigOutput(*defaults)
	if err != nil {
		return err
	}
	return writeConfigOutput(c.stdout, resolvedFormat, payload)
}

func buildConfigOutput(defaults bool) (configOutput, error) {
	cfg := config.Default()
	if !defaults {
		loaded, err := config.Load()
		if err != nil {
			return configOutput{}, err
		}
		cfg = loaded
	}
	out := configOutput{
		API: effectiveAPIConfig{
			BaseURL:        cfg.APIBaseURL(),
			RequestTimeout: cfg.RequestTimeout().String(),
			SendTimeout:    cfg.SendTimeout().String(),
		},
		Logging: effectiveLogConfig{Level: cfg.LogLevel()},
		Server: effectiveServerConfig{
			Address:      cfg.ServerAddress(),
			JWTSecretSet: cfg.JWTSecret() != "",
		},
		Store: effectiveStoreConfig{Backend: cfg.StoreBackend()},
		UI:    effectiveUIConfig{Dark: cfg.DarkMode()},
	}
	if defaults {
		return out, nil
	}
	var err error
	if out.ConfigPath, err = config.ConfigPath(); err != nil {
		return configOutput{}, err
	}
	if out.StorePath, err = config.StorePath(); err != nil {
		return configOutput{}, err
	}
	if out.LogPath, err = config.LogPath(); err != nil {
		return configOutput{}, err
	}
	return out, nil
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format: " + format)
	}
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	default:
		return "", errors.New("invalid --format value: " + raw)
	}
}
