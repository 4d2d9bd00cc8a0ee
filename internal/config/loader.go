package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"smartctlexporter/internal/logger"
)

// rawConfig is used for JSON unmarshaling with duration strings.
type rawConfig struct {
	ListenAddress   string            `json:"ListenAddress"`
	ListenPort      int               `json:"ListenPort"`
	Verbose         bool              `json:"Verbose"`
	PrependSudo     bool              `json:"PrependSudo"`
	ExcludePatterns []string          `json:"ExcludePatterns"`
	Lsblk           rawCommandConfig  `json:"Lsblk"`
	Smartctl        rawSmartctlConfig `json:"Smartctl"`
	Logging         rawLoggingConfig  `json:"Logging"`
}

type rawCommandConfig struct {
	Path    string `json:"Path"`
	Timeout string `json:"Timeout"`
}

type rawSmartctlConfig struct {
	Path      string `json:"Path"`
	Timeout   string `json:"Timeout"`
	SudoPath  string `json:"SudoPath"`
	PowerMode string `json:"PowerMode"`
}

// Booleans are pointers so an absent key keeps the default.
type rawLoggingConfig struct {
	Level      string `json:"Level"`
	Format     string `json:"Format"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   *bool  `json:"Compress"`
	Console    *bool  `json:"Console"`
	NoColor    *bool  `json:"NoColor"`
}

// Load reads configuration from the specified file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from JSON bytes, merged over DefaultConfig.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	parsed, err := convertRawConfig(&raw)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Merge(parsed)
	applyLoggingFlags(&cfg.Logging, &raw.Logging)
	return cfg, nil
}

func convertRawConfig(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		ListenAddress:   raw.ListenAddress,
		ListenPort:      raw.ListenPort,
		Verbose:         raw.Verbose,
		PrependSudo:     raw.PrependSudo,
		ExcludePatterns: raw.ExcludePatterns,
		Logging:         convertRawLogging(&raw.Logging),
	}

	lsblk, err := convertRawCommand("Lsblk", raw.Lsblk.Path, raw.Lsblk.Timeout)
	if err != nil {
		return nil, err
	}
	cfg.Lsblk = lsblk

	smartctl, err := convertRawCommand("Smartctl", raw.Smartctl.Path, raw.Smartctl.Timeout)
	if err != nil {
		return nil, err
	}
	cfg.Smartctl = SmartctlConfig{
		CommandConfig: smartctl,
		SudoPath:      raw.Smartctl.SudoPath,
		PowerMode:     raw.Smartctl.PowerMode,
	}

	return cfg, nil
}

func convertRawCommand(name, path, timeout string) (CommandConfig, error) {
	cc := CommandConfig{Path: path}
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return CommandConfig{}, fmt.Errorf("invalid %s timeout: %w", name, err)
		}
		cc.Timeout = d
	}
	return cc, nil
}

func convertRawLogging(raw *rawLoggingConfig) logger.Config {
	return logger.Config{
		Level:      raw.Level,
		Format:     raw.Format,
		FilePath:   raw.FilePath,
		MaxSizeMB:  raw.MaxSizeMB,
		MaxBackups: raw.MaxBackups,
		MaxAgeDays: raw.MaxAgeDays,
	}
}

func applyLoggingFlags(lc *logger.Config, raw *rawLoggingConfig) {
	if raw.Compress != nil {
		lc.Compress = *raw.Compress
	}
	if raw.Console != nil {
		lc.Console = *raw.Console
	}
	if raw.NoColor != nil {
		lc.NoColor = *raw.NoColor
	}
}
