// Package config provides configuration management for the exporter.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	"smartctlexporter/internal/logger"
)

// Config is the root configuration structure.
type Config struct {
	ListenAddress   string         `json:"ListenAddress"`
	ListenPort      int            `json:"ListenPort"`
	Verbose         bool           `json:"Verbose"`
	PrependSudo     bool           `json:"PrependSudo"`
	ExcludePatterns []string       `json:"ExcludePatterns"` // matched against raw device names, e.g. "^sd[b-c]$"
	Lsblk           CommandConfig  `json:"Lsblk"`
	Smartctl        SmartctlConfig `json:"Smartctl"`
	Logging         logger.Config  `json:"Logging"`
}

// CommandConfig describes an external tool.
type CommandConfig struct {
	Path    string        `json:"Path"`
	Timeout time.Duration `json:"Timeout"` // 0 disables the bound
}

// SmartctlConfig contains smartctl invocation settings.
type SmartctlConfig struct {
	CommandConfig
	SudoPath  string `json:"SudoPath"`
	PowerMode string `json:"PowerMode"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: "0.0.0.0",
		ListenPort:    9587,
		Lsblk: CommandConfig{
			Path:    "lsblk",
			Timeout: 10 * time.Second,
		},
		Smartctl: SmartctlConfig{
			CommandConfig: CommandConfig{
				Path:    "smartctl",
				Timeout: 30 * time.Second,
			},
			SudoPath:  "sudo",
			PowerMode: "standby",
		},
		Logging: logger.DefaultConfig(),
	}
}

// Merge applies non-zero values from other to this config. Boolean flags
// can only be switched on.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.ListenAddress != "" {
		c.ListenAddress = other.ListenAddress
	}
	if other.ListenPort != 0 {
		c.ListenPort = other.ListenPort
	}
	c.Verbose = c.Verbose || other.Verbose
	c.PrependSudo = c.PrependSudo || other.PrependSudo
	if len(other.ExcludePatterns) > 0 {
		c.ExcludePatterns = append(c.ExcludePatterns, other.ExcludePatterns...)
	}

	c.Lsblk.merge(other.Lsblk)
	c.Smartctl.CommandConfig.merge(other.Smartctl.CommandConfig)
	if other.Smartctl.SudoPath != "" {
		c.Smartctl.SudoPath = other.Smartctl.SudoPath
	}
	if other.Smartctl.PowerMode != "" {
		c.Smartctl.PowerMode = other.Smartctl.PowerMode
	}

	c.Logging = mergeLogging(c.Logging, other.Logging)
}

func (cc *CommandConfig) merge(other CommandConfig) {
	if other.Path != "" {
		cc.Path = other.Path
	}
	if other.Timeout != 0 {
		cc.Timeout = other.Timeout
	}
}

func mergeLogging(base, other logger.Config) logger.Config {
	if other.Level != "" {
		base.Level = other.Level
	}
	if other.Format != "" {
		base.Format = other.Format
	}
	if other.FilePath != "" {
		base.FilePath = other.FilePath
	}
	if other.MaxSizeMB != 0 {
		base.MaxSizeMB = other.MaxSizeMB
	}
	if other.MaxBackups != 0 {
		base.MaxBackups = other.MaxBackups
	}
	if other.MaxAgeDays != 0 {
		base.MaxAgeDays = other.MaxAgeDays
	}
	return base
}

// Validate checks settings that would prevent the exporter from starting.
func (c *Config) Validate() error {
	if net.ParseIP(c.ListenAddress) == nil {
		return fmt.Errorf("invalid listen address %q", c.ListenAddress)
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen port %d: must be between 1 and 65535", c.ListenPort)
	}
	if c.Lsblk.Timeout < 0 {
		return fmt.Errorf("invalid lsblk timeout %s", c.Lsblk.Timeout)
	}
	if c.Smartctl.Timeout < 0 {
		return fmt.Errorf("invalid smartctl timeout %s", c.Smartctl.Timeout)
	}
	switch c.Smartctl.PowerMode {
	case "never", "sleep", "standby", "idle":
	default:
		return fmt.Errorf("invalid smartctl power mode %q: must be never, sleep, standby or idle", c.Smartctl.PowerMode)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ListenAddress, strconv.Itoa(c.ListenPort))
}

// LogLevel returns the effective log level; Verbose forces trace.
func (c *Config) LogLevel() string {
	if c.Verbose {
		return "trace"
	}
	return c.Logging.Level
}

// LoggerConfig returns the logging settings with the effective level applied.
func (c *Config) LoggerConfig() logger.Config {
	lc := c.Logging
	lc.Level = c.LogLevel()
	return lc
}

// CompileExcludes compiles the exclusion patterns. An invalid pattern is a
// startup error.
func (c *Config) CompileExcludes() ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(c.ExcludePatterns))
	for _, p := range c.ExcludePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
