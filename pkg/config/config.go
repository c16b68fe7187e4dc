// Package config loads gdbflash's optional configuration file, giving
// defaults for the TCP endpoint, selected device, and memory-transfer
// chunk size that command-line flags may override.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// Config holds the settings gdbflash reads from gdbflash.ini.
type Config struct {
	Host      string
	Port      int
	Device    string
	ChunkSize int
}

// Load reads configuration from gdbflash.ini in the following search order:
// 1. Current directory (./gdbflash.ini)
// 2. $GDBFLASH directory ($GDBFLASH/gdbflash.ini)
// 3. Home directory (~/gdbflash.ini)
//
// Unlike the teacher's config loader, a missing file is not an error: the
// built-in defaults (127.0.0.1:1122, no chunk-size cap) are a complete,
// working configuration on their own.
func Load() (*Config, error) {
	var searchPaths []string
	searchPaths = append(searchPaths, filepath.Join(".", "gdbflash.ini"))
	if dir := os.Getenv("GDBFLASH"); dir != "" {
		searchPaths = append(searchPaths, filepath.Join(dir, "gdbflash.ini"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, "gdbflash.ini"))
	}

	cfg := &Config{
		Host:      "127.0.0.1",
		Port:      1122,
		ChunkSize: 0,
	}

	var iniFile *ini.File
	for _, path := range searchPaths {
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		f, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
		iniFile = f
		break
	}

	if iniFile == nil {
		return cfg, nil
	}

	section := iniFile.Section("DEFAULT")
	cfg.Host = section.Key("host").MustString(cfg.Host)
	cfg.Port = section.Key("port").MustInt(cfg.Port)
	cfg.Device = section.Key("device").MustString(cfg.Device)
	cfg.ChunkSize = section.Key("chunk_size").MustInt(cfg.ChunkSize)

	return cfg, nil
}

// Addr formats the host/port pair as the "host:port" string rsp.Dial expects.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
