package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/toolkits/pkg/file"
)

const (
	SourceProc     = "proc"
	SourceProcfs   = "procfs"
	SourceGopsutil = "gopsutil"

	OverflowDrop  = "drop"
	OverflowError = "error"

	EscalationSudo = "sudo"
	EscalationNone = "none"

	DefaultMaxMatches = 1024
)

type LogConfig struct {
	Level  string                 `toml:"level"`
	Format string                 `toml:"format"`
	Output string                 `toml:"output"`
	Fields map[string]interface{} `toml:"fields"`
}

type ScanConfig struct {
	Source     string `toml:"source"`
	ProcRoot   string `toml:"proc_root"`
	MaxMatches int    `toml:"max_matches"`
	Overflow   string `toml:"overflow"`
}

type KillConfig struct {
	DefaultSignal string `toml:"default_signal"`
	Escalation    string `toml:"escalation"`
}

type ConfigType struct {
	ConfigFile string `toml:"-"`

	LogConfig LogConfig  `toml:"log"`
	Scan      ScanConfig `toml:"scan"`
	Kill      KillConfig `toml:"kill"`
}

// Overrides carries command line values that take precedence over the file.
type Overrides struct {
	LogLevel   string
	Source     string
	MaxMatches int
}

var Config = defaults()

func defaults() *ConfigType {
	c := &ConfigType{}
	c.applyDefaults()
	return c
}

// DefaultPath returns the config file looked up when --config is not given.
func DefaultPath() string {
	if p := os.Getenv("SWORDFISH_CONFIG"); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "swordfish", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "swordfish", "config.toml")
}

// InitConfig loads configFile into Config. An empty configFile means the
// default location, which is allowed to be absent.
func InitConfig(configFile string, ov Overrides) error {
	explicit := configFile != ""
	if !explicit {
		configFile = DefaultPath()
	}

	c := &ConfigType{ConfigFile: configFile}

	if configFile != "" && file.IsExist(configFile) {
		if _, err := toml.DecodeFile(configFile, c); err != nil {
			return fmt.Errorf("failed to load config file(%s): %v", configFile, err)
		}
	} else if explicit {
		return fmt.Errorf("configuration file(%s) not found", configFile)
	}

	if ov.LogLevel != "" {
		c.LogConfig.Level = ov.LogLevel
	}
	if ov.Source != "" {
		c.Scan.Source = ov.Source
	}
	if ov.MaxMatches > 0 {
		c.Scan.MaxMatches = ov.MaxMatches
	}

	c.applyDefaults()

	if err := c.validate(); err != nil {
		return err
	}

	Config = c
	return nil
}

func (c *ConfigType) applyDefaults() {
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "warn"
	}

	if c.LogConfig.Format == "" {
		c.LogConfig.Format = "console"
	}

	if len(c.LogConfig.Output) == 0 {
		c.LogConfig.Output = "stderr"
	}

	if c.LogConfig.Fields == nil {
		c.LogConfig.Fields = make(map[string]interface{})
	}

	if c.Scan.Source == "" {
		if runtime.GOOS == "linux" {
			c.Scan.Source = SourceProc
		} else {
			c.Scan.Source = SourceGopsutil
		}
	}

	if c.Scan.ProcRoot == "" {
		c.Scan.ProcRoot = "/proc"
	}

	if c.Scan.MaxMatches <= 0 {
		c.Scan.MaxMatches = DefaultMaxMatches
	}

	if c.Scan.Overflow == "" {
		c.Scan.Overflow = OverflowDrop
	}

	if c.Kill.DefaultSignal == "" {
		c.Kill.DefaultSignal = "TERM"
	}

	if c.Kill.Escalation == "" {
		c.Kill.Escalation = EscalationSudo
	}
}

func (c *ConfigType) validate() error {
	c.Scan.Source = strings.ToLower(strings.TrimSpace(c.Scan.Source))
	switch c.Scan.Source {
	case SourceProc, SourceProcfs, SourceGopsutil:
	default:
		return fmt.Errorf("scan.source must be one of proc, procfs, gopsutil (got %q)", c.Scan.Source)
	}

	c.Scan.Overflow = strings.ToLower(strings.TrimSpace(c.Scan.Overflow))
	if c.Scan.Overflow != OverflowDrop && c.Scan.Overflow != OverflowError {
		return fmt.Errorf("scan.overflow must be drop or error (got %q)", c.Scan.Overflow)
	}

	c.Kill.Escalation = strings.ToLower(strings.TrimSpace(c.Kill.Escalation))
	if c.Kill.Escalation != EscalationSudo && c.Kill.Escalation != EscalationNone {
		return fmt.Errorf("kill.escalation must be sudo or none (got %q)", c.Kill.Escalation)
	}

	return nil
}
