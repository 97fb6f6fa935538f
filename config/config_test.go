package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("BKHARVEST_UPSTREAM_GATEWAY_URL")
		os.Unsetenv("BKHARVEST_UPSTREAM_TIMEOUT")
		os.Unsetenv("BKHARVEST_UPSTREAM_REQUESTS_PER_SECOND")
		os.Unsetenv("BKHARVEST_HARVEST_OUTPUT_DIR")
		os.Unsetenv("BKHARVEST_HARVEST_CONCURRENCY")
		os.Unsetenv("BKHARVEST_HARVEST_SWEEP_STEP")
		os.Unsetenv("BKHARVEST_DATABASE_DRIVER")
		os.Unsetenv("BKHARVEST_DATABASE_DSN")
		os.Unsetenv("BKHARVEST_SERVER_PORT")
		os.Unsetenv("BKHARVEST_SERVER_ENVIRONMENT")
		os.Unsetenv("BKHARVEST_CACHE_TTL")
		os.Unsetenv("BKHARVEST_CACHE_SIZE")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Upstream.GatewayURL != "https://use1-prod-bk-gateway.rbictg.com" {
			t.Errorf("Upstream.GatewayURL = %s, want the production gateway", cfg.Upstream.GatewayURL)
		}
		if cfg.Upstream.SanityURL != "https://czqk28jt.apicdn.sanity.io" {
			t.Errorf("Upstream.SanityURL = %s, want the sanity CDN", cfg.Upstream.SanityURL)
		}
		if cfg.Upstream.Timeout != 30*time.Second {
			t.Errorf("Upstream.Timeout = %v, want 30s", cfg.Upstream.Timeout)
		}
		if cfg.Upstream.RequestsPerSecond != 0 {
			t.Errorf("Upstream.RequestsPerSecond = %v, want 0", cfg.Upstream.RequestsPerSecond)
		}
		if cfg.Harvest.OutputDir != "Temp" {
			t.Errorf("Harvest.OutputDir = %s, want Temp", cfg.Harvest.OutputDir)
		}
		if cfg.Harvest.Concurrency != 10 {
			t.Errorf("Harvest.Concurrency = %d, want 10", cfg.Harvest.Concurrency)
		}
		if cfg.Harvest.MenuBatchSize != 100 {
			t.Errorf("Harvest.MenuBatchSize = %d, want 100", cfg.Harvest.MenuBatchSize)
		}
		if cfg.Harvest.SweepStep != 0.5 {
			t.Errorf("Harvest.SweepStep = %v, want 0.5", cfg.Harvest.SweepStep)
		}
		if cfg.Database.Driver != "postgres" {
			t.Errorf("Database.Driver = %s, want postgres", cfg.Database.Driver)
		}
		if cfg.Database.BatchSize != 100000 {
			t.Errorf("Database.BatchSize = %d, want 100000", cfg.Database.BatchSize)
		}
		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Cache.Size != 10000 {
			t.Errorf("Cache.Size = %d, want 10000", cfg.Cache.Size)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("BKHARVEST_UPSTREAM_GATEWAY_URL", "http://localhost:9999")
		os.Setenv("BKHARVEST_UPSTREAM_TIMEOUT", "5s")
		os.Setenv("BKHARVEST_UPSTREAM_REQUESTS_PER_SECOND", "2.5")
		os.Setenv("BKHARVEST_HARVEST_OUTPUT_DIR", "/tmp/bk")
		os.Setenv("BKHARVEST_HARVEST_CONCURRENCY", "4")
		os.Setenv("BKHARVEST_DATABASE_DRIVER", "sqlite")
		os.Setenv("BKHARVEST_DATABASE_DSN", "file:bk.db")
		os.Setenv("BKHARVEST_SERVER_PORT", "9090")
		os.Setenv("BKHARVEST_SERVER_ENVIRONMENT", "production")
		os.Setenv("BKHARVEST_CACHE_TTL", "1h")
		os.Setenv("BKHARVEST_CACHE_SIZE", "500")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Upstream.GatewayURL != "http://localhost:9999" {
			t.Errorf("Upstream.GatewayURL = %s, want http://localhost:9999", cfg.Upstream.GatewayURL)
		}
		if cfg.Upstream.Timeout != 5*time.Second {
			t.Errorf("Upstream.Timeout = %v, want 5s", cfg.Upstream.Timeout)
		}
		if cfg.Upstream.RequestsPerSecond != 2.5 {
			t.Errorf("Upstream.RequestsPerSecond = %v, want 2.5", cfg.Upstream.RequestsPerSecond)
		}
		if cfg.Harvest.OutputDir != "/tmp/bk" {
			t.Errorf("Harvest.OutputDir = %s, want /tmp/bk", cfg.Harvest.OutputDir)
		}
		if cfg.Harvest.Concurrency != 4 {
			t.Errorf("Harvest.Concurrency = %d, want 4", cfg.Harvest.Concurrency)
		}
		if cfg.Database.Driver != "sqlite" {
			t.Errorf("Database.Driver = %s, want sqlite", cfg.Database.Driver)
		}
		if cfg.Database.DSN != "file:bk.db" {
			t.Errorf("Database.DSN = %s, want file:bk.db", cfg.Database.DSN)
		}
		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.Cache.Size != 500 {
			t.Errorf("Cache.Size = %d, want 500", cfg.Cache.Size)
		}
	})

	t.Run("fails validation for unknown database driver", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("BKHARVEST_DATABASE_DRIVER", "mysql")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for unknown driver")
		}
		if !strings.HasPrefix(err.Error(), "invalid configuration: ") {
			t.Errorf("Load() error = %v, want wrapped validation error", err)
		}
	})

	t.Run("fails validation for zero concurrency", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("BKHARVEST_HARVEST_CONCURRENCY", "0")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for zero concurrency")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		prevDir, _ := os.Getwd()
		defer os.Chdir(prevDir)
		os.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		prevDir, _ := os.Getwd()
		defer os.Chdir(prevDir)
		os.Chdir(t.TempDir())

		envContent := `
# Comment line
BK_TEST_VAR_1=value1
   # indented comment

BK_TEST_VAR_2="quoted value"
# BK_TEST_COMMENTED=should_not_load
not a pair
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Unsetenv("BK_TEST_VAR_1")
		os.Unsetenv("BK_TEST_VAR_2")
		os.Unsetenv("BK_TEST_COMMENTED")
		defer func() {
			os.Unsetenv("BK_TEST_VAR_1")
			os.Unsetenv("BK_TEST_VAR_2")
		}()

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if got := os.Getenv("BK_TEST_VAR_1"); got != "value1" {
			t.Errorf("BK_TEST_VAR_1 = %s, want value1", got)
		}
		if got := os.Getenv("BK_TEST_VAR_2"); got != "quoted value" {
			t.Errorf("BK_TEST_VAR_2 = %s, want quoted value", got)
		}
		if got := os.Getenv("BK_TEST_COMMENTED"); got != "" {
			t.Errorf("BK_TEST_COMMENTED = %s, should not be loaded from comment", got)
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		prevDir, _ := os.Getwd()
		defer os.Chdir(prevDir)
		os.Chdir(t.TempDir())

		os.Setenv("BK_TEST_OVERRIDE", "existing-value")
		defer os.Unsetenv("BK_TEST_OVERRIDE")

		if err := os.WriteFile(".env", []byte("BK_TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if got := os.Getenv("BK_TEST_OVERRIDE"); got != "existing-value" {
			t.Errorf("BK_TEST_OVERRIDE = %s, want existing-value (should not override)", got)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Upstream: UpstreamConfig{GatewayURL: "https://gw", SanityURL: "https://sanity"},
			Harvest:  HarvestConfig{Concurrency: 10, MenuBatchSize: 100, SweepStep: 0.5},
			Database: DatabaseConfig{Driver: "postgres", DSN: "postgres://localhost/db", BatchSize: 100},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid postgres config", mutate: func(*Config) {}},
		{name: "valid sqlite config", mutate: func(c *Config) { c.Database.Driver = "sqlite"; c.Database.DSN = ":memory:" }},
		{name: "missing gateway URL", mutate: func(c *Config) { c.Upstream.GatewayURL = "" }, wantErr: true},
		{name: "missing sanity URL", mutate: func(c *Config) { c.Upstream.SanityURL = "" }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.Harvest.Concurrency = 0 }, wantErr: true},
		{name: "zero menu batch", mutate: func(c *Config) { c.Harvest.MenuBatchSize = 0 }, wantErr: true},
		{name: "negative sweep step", mutate: func(c *Config) { c.Harvest.SweepStep = -0.5 }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "empty DSN", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "zero upload batch", mutate: func(c *Config) { c.Database.BatchSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
