package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "message-feed"

// Config holds the application configuration
type Config struct {
	// ConfigURL is where the ledger node publishes config.json
	ConfigURL string `yaml:"config_url"`
	// PollInterval is the delay between feed refreshes
	PollInterval time.Duration `yaml:"poll_interval"`
	// IdleTimeout pauses polling after this long without input
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// Editor is the command to use for external editing (defaults to $EDITOR or nvim)
	Editor string `yaml:"editor"`
	// EditorArgs are additional arguments to pass to the editor
	EditorArgs []string `yaml:"editor_args"`
	// Theme settings
	Theme ThemeConfig `yaml:"theme"`
	// Keybinds settings
	Keybinds KeybindConfig `yaml:"keybinds"`
}

// KeybindConfig holds keybind-related settings
type KeybindConfig struct {
	Global GlobalKeybinds `yaml:"global"`
}

// GlobalKeybinds are active regardless of the focused panel
type GlobalKeybinds struct {
	Quit      string `yaml:"quit"`       // default: "ctrl+c"
	NextPanel string `yaml:"next_panel"` // default: "tab"
	Refresh   string `yaml:"refresh"`    // default: "ctrl+r"
	Share     string `yaml:"share"`      // default: "ctrl+s"
	Compose   string `yaml:"compose"`    // default: "ctrl+e"
}

// ThemeConfig holds theme-related settings
type ThemeConfig struct {
	// PrimaryColor is the main accent color (hex)
	PrimaryColor string `yaml:"primary_color"`
	// SecondaryColor is the secondary accent color (hex)
	SecondaryColor string `yaml:"secondary_color"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "nvim"
	}

	return &Config{
		ConfigURL:    "http://localhost:8081/config.json",
		PollInterval: time.Second,
		IdleTimeout:  15 * time.Minute,
		Editor:       editor,
		EditorArgs:   []string{},
		Theme: ThemeConfig{
			PrimaryColor:   "#7C3AED",
			SecondaryColor: "#10B981",
		},
		Keybinds: DefaultKeybinds(),
	}
}

// DefaultKeybinds returns the default keybind configuration
func DefaultKeybinds() KeybindConfig {
	return KeybindConfig{
		Global: GlobalKeybinds{
			Quit:      "ctrl+c",
			NextPanel: "tab",
			Refresh:   "ctrl+r",
			Share:     "ctrl+s",
			Compose:   "ctrl+e",
		},
	}
}

// ConfigDir returns the path to the config directory
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LogPath returns the path of the client log file
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".log"), nil
}

// Load loads the configuration from disk, or returns defaults if not found
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.mergeDefaults()
	return cfg, nil
}

// mergeDefaults fills values a config file left empty
func (c *Config) mergeDefaults() {
	defaults := DefaultConfig()

	if c.ConfigURL == "" {
		c.ConfigURL = defaults.ConfigURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaults.IdleTimeout
	}
	if c.Editor == "" {
		c.Editor = defaults.Editor
	}
	if c.Theme.PrimaryColor == "" {
		c.Theme.PrimaryColor = defaults.Theme.PrimaryColor
	}
	if c.Theme.SecondaryColor == "" {
		c.Theme.SecondaryColor = defaults.Theme.SecondaryColor
	}

	global := &c.Keybinds.Global
	if global.Quit == "" {
		global.Quit = defaults.Keybinds.Global.Quit
	}
	if global.NextPanel == "" {
		global.NextPanel = defaults.Keybinds.Global.NextPanel
	}
	if global.Refresh == "" {
		global.Refresh = defaults.Keybinds.Global.Refresh
	}
	if global.Share == "" {
		global.Share = defaults.Keybinds.Global.Share
	}
	if global.Compose == "" {
		global.Compose = defaults.Keybinds.Global.Compose
	}
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
