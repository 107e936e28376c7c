package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zhubert/claude-headless/paths"
)

// Environment variables read by the config layer.
const (
	EnvConfigPath = "CLAUDE_HEADLESS_CONFIG"
	EnvClaudeBin  = "CLAUDE_CODE_BIN"
)

// Defaults applied before the config file is read.
const (
	DefaultMode          = "headless"
	DefaultSessionPrefix = "claude"
	DefaultNotifyTitle   = "Claude Code"
	DefaultPTY           = "auto"
	DefaultTrustWait     = 20 * time.Second
)

// Config holds the wrapper configuration. Command-line flags override
// every field.
type Config struct {
	ClaudeBin     string        `yaml:"claude_bin,omitempty"`     // Path to the claude executable
	LogDir        string        `yaml:"log_dir,omitempty"`        // Directory for run logs
	DefaultMode   string        `yaml:"default_mode,omitempty"`   // headless, interactive, background or auto
	SessionPrefix string        `yaml:"session_prefix,omitempty"` // Prefix for generated tmux session names
	Notify        bool          `yaml:"notify,omitempty"`         // Notify when background runs finish
	NotifyTitle   string        `yaml:"notify_title,omitempty"`
	PTY           string        `yaml:"pty,omitempty"`           // auto, bsd, gnu or none
	OutputFormat  string        `yaml:"output_format,omitempty"` // Forwarded as --output-format in headless runs
	TrustWait     time.Duration `yaml:"trust_wait,omitempty"`    // How long to wait for the folder trust prompt

	filePath string
}

// Default returns a config populated with default values.
func Default() *Config {
	return &Config{
		DefaultMode:   DefaultMode,
		SessionPrefix: DefaultSessionPrefix,
		NotifyTitle:   DefaultNotifyTitle,
		PTY:           DefaultPTY,
		TrustWait:     DefaultTrustWait,
	}
}

// ResolvePath returns the config file location: the explicit path if
// given, then $CLAUDE_HEADLESS_CONFIG, then the default location.
func ResolvePath(explicit string, getenv func(string) string) (path string, isDefault bool, err error) {
	if explicit != "" {
		return expandHome(explicit), false, nil
	}
	if env := getenv(EnvConfigPath); env != "" {
		return expandHome(env), false, nil
	}
	path, err = paths.ConfigFilePath()
	return path, true, err
}

// Load reads the config file at path over the defaults. A missing file is
// only an error when the caller asked for it explicitly (required).
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	cfg.filePath = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// normalize fills blanks left by the file and expands ~ in paths.
func (c *Config) normalize() {
	if c.DefaultMode == "" {
		c.DefaultMode = DefaultMode
	}
	if c.SessionPrefix == "" {
		c.SessionPrefix = DefaultSessionPrefix
	}
	if c.NotifyTitle == "" {
		c.NotifyTitle = DefaultNotifyTitle
	}
	if c.PTY == "" {
		c.PTY = DefaultPTY
	}
	if c.TrustWait == 0 {
		c.TrustWait = DefaultTrustWait
	}
	c.LogDir = expandHome(c.LogDir)
	c.ClaudeBin = expandHome(c.ClaudeBin)
}

// ApplyEnv overlays environment overrides onto the config.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if bin := getenv(EnvClaudeBin); bin != "" {
		c.ClaudeBin = expandHome(bin)
	}
}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	switch c.DefaultMode {
	case "headless", "interactive", "background", "auto":
	default:
		return fmt.Errorf("default_mode %q must be one of headless, interactive, background, auto", c.DefaultMode)
	}

	switch c.PTY {
	case "auto", "bsd", "gnu", "none":
	default:
		return fmt.Errorf("pty %q must be one of auto, bsd, gnu, none", c.PTY)
	}

	switch c.OutputFormat {
	case "", "text", "json", "stream-json":
	default:
		return fmt.Errorf("output_format %q must be one of text, json, stream-json", c.OutputFormat)
	}

	if strings.ContainsAny(c.SessionPrefix, ":. \t") {
		return fmt.Errorf("session_prefix %q must not contain ':', '.' or whitespace", c.SessionPrefix)
	}

	if c.TrustWait < 0 {
		return fmt.Errorf("trust_wait must not be negative")
	}
	return nil
}

// FilePath returns the path the config was loaded from.
func (c *Config) FilePath() string {
	return c.filePath
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
