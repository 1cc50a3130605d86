// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Classifier ClassifierConfig `toml:"classifier"`
	Server     ServerConfig     `toml:"server"`
	History    HistoryConfig    `toml:"history"`
}

// ClassifierConfig maps classifier client settings.
type ClassifierConfig struct {
	Endpoint *string `toml:"endpoint"`
	Timeout  *string `toml:"timeout"`
}

// ServerConfig maps settings for the classifier service.
type ServerConfig struct {
	Listen    *string `toml:"listen"`
	LogLevel  *string `toml:"log-level"`
	LogFormat *string `toml:"log-format"`
}

// HistoryConfig maps analysis history settings.
type HistoryConfig struct {
	Enabled *bool `toml:"enabled"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
