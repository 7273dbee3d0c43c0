package config

import "time"

// TestConfig returns a config suitable for testing. BaseURL is normally
// replaced with an httptest server address.
func TestConfig() *Config {
	d := defaultConfig()
	return &Config{
		API: APIConfig{
			BaseURL:     "http://127.0.0.1:0",
			HTTPTimeout: 5 * time.Second,
			UserAgent:   "snooze-test/1.0",
		},
		Database: DatabaseConfig{
			Path:    ":memory:",
			Timeout: 1 * time.Second,
		},
		Log:     LogConfig{Level: "off"},
		UI:      d.UI,
		Browser: d.Browser,
		Keys:    d.Keys,
	}
}
