package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/snooze/internal/validation"
)

const DefaultBaseURL = "https://hack-or-snooze-v3.herokuapp.com"

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Keys     KeyConfig      `mapstructure:"keys"`
}

type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`

	// RequireHTTPS rejects plain http base URLs.
	RequireHTTPS bool `mapstructure:"require_https"`
}

type DatabaseConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type UIConfig struct {
	Colors UIColors     `mapstructure:"colors"`
	List   ListConfig   `mapstructure:"list"`
	Submit SubmitConfig `mapstructure:"submit"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type ListConfig struct {
	MaxTitleLength int  `mapstructure:"max_title_length"`
	ShowSubmitter  bool `mapstructure:"show_submitter"`
}

// SubmitConfig pre-fills forms, which is handy against a test server.
type SubmitConfig struct {
	DefaultAuthor   string `mapstructure:"default_author"`
	DefaultUsername string `mapstructure:"default_username"`
}

type BrowserConfig struct {
	DefaultOpener string   `mapstructure:"default_opener"`
	Preferred     []string `mapstructure:"preferred"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit           string `mapstructure:"quit"`
	AllStories     string `mapstructure:"all_stories"`
	Submit         string `mapstructure:"submit"`
	Favorites      string `mapstructure:"favorites"`
	MyStories      string `mapstructure:"my_stories"`
	Account        string `mapstructure:"account"`
	Logout         string `mapstructure:"logout"`
	Delete         string `mapstructure:"delete"`
	ToggleFavorite string `mapstructure:"toggle_favorite"`
	Open           string `mapstructure:"open"`
	Refresh        string `mapstructure:"refresh"`
	Search         string `mapstructure:"search"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		API: APIConfig{
			BaseURL:     DefaultBaseURL,
			HTTPTimeout: 30 * time.Second,
			UserAgent:   "snooze/1.0 (https://github.com/pders01/snooze)",
		},
		Database: DatabaseConfig{
			Path:    filepath.Join(homeDir, ".snooze.db"),
			Timeout: 1 * time.Second,
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(homeDir, ".snooze", "snooze.log"),
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
			List: ListConfig{
				MaxTitleLength: 100,
				ShowSubmitter:  true,
			},
		},
		Browser: BrowserConfig{
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:           "q",
				AllStories:     "1",
				Submit:         "2",
				Favorites:      "3",
				MyStories:      "4",
				Account:        "5",
				Logout:         "l",
				Delete:         "x",
				ToggleFavorite: "f",
				Open:           "o",
				Refresh:        "r",
				Search:         "s",
			},
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "rundll32"
	default:
		return "open"
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	// Defaults go in as maps so a file that sets one nested key still
	// inherits the rest of its section.
	v.SetDefault("api", toSettings(cfg.API))
	v.SetDefault("database", toSettings(cfg.Database))
	v.SetDefault("log", toSettings(cfg.Log))
	v.SetDefault("ui", toSettings(cfg.UI))
	v.SetDefault("browser", toSettings(cfg.Browser))
	v.SetDefault("keys", toSettings(cfg.Keys))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "snooze")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SNOOZE")
	v.AutomaticEnv()
	// Nested keys are not picked up by AutomaticEnv alone.
	_ = v.BindEnv("api.base_url", "SNOOZE_API_URL")
	_ = v.BindEnv("log.level", "SNOOZE_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := config.Normalize(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Normalize validates the API endpoint and expands file paths. Call it
// again after overriding fields from flags.
func (c *Config) Normalize() error {
	validator := validation.NewBaseURLValidator()
	if c.API.RequireHTTPS {
		validator = validation.NewStrictBaseURLValidator()
	}
	base, err := validator.ValidateAndNormalize(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api.base_url: %w", err)
	}
	c.API.BaseURL = base

	c.Database.Path = expandPath(c.Database.Path)
	c.Log.File = expandPath(c.Log.File)
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func Save(config *Config, path string) error {
	v := viper.New()

	v.Set("api", toSettings(config.API))
	v.Set("database", toSettings(config.Database))
	v.Set("log", toSettings(config.Log))
	v.Set("ui", toSettings(config.UI))
	v.Set("browser", toSettings(config.Browser))
	v.Set("keys", toSettings(config.Keys))

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

// toSettings flattens a config section into a map keyed by mapstructure
// tags so that Save and Load agree on key names. Durations are written as
// strings for TOML readability.
func toSettings(section any) map[string]any {
	rv := reflect.ValueOf(section)
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		key := rt.Field(i).Tag.Get("mapstructure")
		if key == "" {
			key = strings.ToLower(rt.Field(i).Name)
		}
		fv := rv.Field(i)
		switch {
		case fv.Type() == reflect.TypeOf(time.Duration(0)):
			out[key] = time.Duration(fv.Int()).String()
		case fv.Kind() == reflect.Struct:
			out[key] = toSettings(fv.Interface())
		default:
			out[key] = fv.Interface()
		}
	}
	return out
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
