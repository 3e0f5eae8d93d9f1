package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName = ".botdesk"
	homeEnvVar = "BOTDESK_HOME"
)

// DataDir returns the base data directory for botdesk. BOTDESK_HOME wins over
// the default ~/.botdesk.
func DataDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv(homeEnvVar)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to config.toml.
func ConfigPath() (string, error) {
	return dataPath("config.toml")
}

// StorePath returns the path to the local bbolt database holding the auth
// token and cached conversation summaries.
func StorePath() (string, error) {
	return dataPath("botdesk.db")
}

// LogPath returns the path to the client log file.
func LogPath() (string, error) {
	return dataPath("botdesk.log")
}

// ServerStorePath returns the path used by the development backend.
func ServerStorePath() (string, error) {
	return dataPath("devserver.db")
}

func dataPath(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
