package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:    ":memory:", // tests open their own temp stores
			Timeout: 1 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendBolt,
			Table:   "html_files",
		},
		Remote: RemoteConfig{
			UserAgent:    "fbrowse-test/1.0",
			RetryMax:     0,
			RetryWaitMin: 10 * time.Millisecond,
			RetryWaitMax: 50 * time.Millisecond,
			AllowHTTP:    true,
		},
		Fetch: FetchConfig{
			Timeout:      2 * time.Second,
			TickInterval: 100 * time.Millisecond,
			PageSize:     5,
		},
		Log:    LogConfig{Level: "off"},
		UI:     defaultConfig().UI,
		Opener: defaultConfig().Opener,
		Keys:   defaultConfig().Keys,
	}
}
