package config

import "testing"

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:                  3306,
			RedisURL:              "redis://127.0.0.1:6379",
			ScanLimit:             100,
			RateLimit:             100,
			RateWindow:            60,
			BackendTimeoutSeconds: 3,
			WorkerPoolSize:        256,
			ConnRatePerSecond:     200,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero scan limit disables scans, still valid", func(c *Config) { c.ScanLimit = 0 }, false},
		{"negative scan limit invalid", func(c *Config) { c.ScanLimit = -1 }, true},
		{"port out of range", func(c *Config) { c.Port = 70000 }, true},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"missing redis url", func(c *Config) { c.RedisURL = "" }, true},
		{"zero rate limit invalid", func(c *Config) { c.RateLimit = 0 }, true},
		{"zero rate window invalid", func(c *Config) { c.RateWindow = 0 }, true},
		{"zero backend timeout invalid", func(c *Config) { c.BackendTimeoutSeconds = 0 }, true},
		{"zero worker pool invalid", func(c *Config) { c.WorkerPoolSize = 0 }, true},
		{"zero conn rate invalid", func(c *Config) { c.ConnRatePerSecond = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
