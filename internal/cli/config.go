package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration, read from YAML. Flags override
// nothing here; the file carries the engine endpoint and local data
// location, which change per environment rather than per invocation.
type Config struct {
	Engine struct {
		BaseURL    string `yaml:"base_url"`
		SocketPath string `yaml:"socket_path"`
		Token      string `yaml:"token"`
	} `yaml:"engine"`
	DataDir string `yaml:"data_dir"`
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Engine.BaseURL = "http://localhost:8450"
	cfg.Engine.SocketPath = "/socket.io"
	cfg.DataDir = ""
	return cfg
}

// LoadConfig reads the config file at path, or the default location
// when path is empty. A missing file yields defaults; a malformed
// file is an error.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return defaultConfig(), nil
		}
		path = filepath.Join(home, ".conduit", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DataDirPath resolves the local store location, defaulting under the
// user's home directory.
func (c *Config) DataDirPath() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return filepath.Join(home, ".conduit"), nil
}
