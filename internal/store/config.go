package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIBase  = "http://127.0.0.1:3335"
	DefaultOwnerID  = 1
	DefaultFormat   = "json"
	DefaultLogLevel = "warn"
	DefaultWebAddr  = "127.0.0.1:3336"
	DefaultGlyphs   = "unicode"
)

// Config is the user configuration file (config.toml).
type Config struct {
	APIBase  string `toml:"api_base" json:"apiBase"`
	OwnerID  int    `toml:"owner_id" json:"ownerId"`
	Format   string `toml:"format" json:"format"`
	LogLevel string `toml:"log_level" json:"logLevel"`
	LogFile  string `toml:"log_file,omitempty" json:"logFile,omitempty"`

	TUI TUIConfig `toml:"tui" json:"tui"`
	Web WebConfig `toml:"web" json:"web"`
}

type TUIConfig struct {
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs string `toml:"glyphs" json:"glyphs"`
}

type WebConfig struct {
	Addr string `toml:"addr" json:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		APIBase:  DefaultAPIBase,
		OwnerID:  DefaultOwnerID,
		Format:   DefaultFormat,
		LogLevel: DefaultLogLevel,
		TUI:      TUIConfig{Glyphs: DefaultGlyphs},
		Web:      WebConfig{Addr: DefaultWebAddr},
	}
}

// ConfigDir is $XDG_CONFIG_HOME/todo, falling back to ~/.config/todo.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); v != "" {
		return filepath.Join(v, "todo"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "todo"), nil
}

// ConfigPath honours $TODO_CONFIG before the default location.
func ConfigPath() (string, error) {
	if v := strings.TrimSpace(os.Getenv("TODO_CONFIG")); v != "" {
		return v, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StateDir is $XDG_STATE_HOME/todo, falling back to ~/.local/state/todo.
func StateDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); v != "" {
		return filepath.Join(v, "todo"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "todo"), nil
}

func DefaultLogFile() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "todo.log"), nil
}

// LoadConfig reads path over the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, keys[0].String())
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overlays TODO_* variables. getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("TODO_API")); v != "" {
		c.APIBase = v
	}
	if v := strings.TrimSpace(getenv("TODO_OWNER")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TODO_OWNER: %q is not an integer", v)
		}
		c.OwnerID = n
	}
	if v := strings.TrimSpace(getenv("TODO_FORMAT")); v != "" {
		c.Format = v
	}
	if v := strings.TrimSpace(getenv("TODO_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(getenv("TODO_LOG_FILE")); v != "" {
		c.LogFile = v
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.OwnerID <= 0 {
		return fmt.Errorf("owner_id must be positive (got %d)", c.OwnerID)
	}
	switch strings.ToLower(strings.TrimSpace(c.TUI.Glyphs)) {
	case "", "unicode", "ascii":
	default:
		return fmt.Errorf("tui.glyphs must be unicode or ascii (got %q)", c.TUI.Glyphs)
	}
	return nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// SaveConfig writes cfg as TOML. Concurrent writers never leave a torn file.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.toml.*.tmp", path, b, 0o600)
}
