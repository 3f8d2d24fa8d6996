// Package config loads and persists daybook configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// MasterSecretEnv names the environment variable holding the master secret.
// When unset, the CLI prompts for it interactively.
const MasterSecretEnv = "DAYBOOK_MASTER_SECRET"

// Config represents application configuration.
type Config struct {
	// Port is the admin server listen port.
	Port int `json:"port"`
	// AdminPassword gates the login endpoint. Stored as a vault-encrypted
	// secret, never in the clear.
	AdminPassword string `json:"admin_password,omitempty"`
	// DatabasePath locates the source registry. Defaults under the state dir.
	DatabasePath string `json:"database_path,omitempty"`
	LogLevel     string `json:"log_level"`
	LogPath      string `json:"-"`
	// AllowInsecureVault enables the development fallback key when no master
	// secret is configured. Never enable in production.
	AllowInsecureVault bool `json:"allow_insecure_vault,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	return &Config{
		Port:         8937,
		DatabasePath: filepath.Join(defaultStateDir(), "daybook.db"),
		LogLevel:     "info",
		LogPath:      filepath.Join(defaultStateDir(), "daybook.log"),
	}
}

// GetConfigPath returns the path of the configuration file.
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// Load reads the configuration file at path, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(defaultStateDir(), "daybook.log")
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "daybook")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "daybook")
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, "daybook")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "daybook")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "daybook")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "daybook")
	default:
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "daybook")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "daybook")
	}
}
