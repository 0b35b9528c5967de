package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		contents   string
		wantError  bool
		errContain string
	}{
		{
			name:     "Minimal config",
			contents: "logging:\n  level: debug\n",
		},
		{
			name:       "Unknown store driver",
			contents:   "store:\n  driver: mongo\n",
			wantError:  true,
			errContain: "store.driver",
		},
		{
			name:       "Postgres without dsn",
			contents:   "store:\n  driver: postgres\n",
			wantError:  true,
			errContain: "store.postgres.dsn",
		},
		{
			name:       "Firestore without project",
			contents:   "store:\n  driver: firestore\n",
			wantError:  true,
			errContain: "projectId",
		},
		{
			name:       "Admin users without secret",
			contents:   "auth:\n  users:\n    admin: $2a$10$abcdefghijklmnopqrstuv\n",
			wantError:  true,
			errContain: "tokenSecret",
		},
		{
			name:       "Unsupported output format",
			contents:   "output:\n  format: json\n",
			wantError:  true,
			errContain: "output format",
		},
		{
			name:       "Bad log level",
			contents:   "logging:\n  level: verbose\n",
			wantError:  true,
			errContain: "logging.level",
		},
		{
			name:       "Non-positive default multiplier",
			contents:   "defaults:\n  vehicleWeights:\n    機車: -1\n",
			wantError:  true,
			errContain: "defaults",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(writeConfig(t, tt.contents))
			if tt.wantError {
				if err == nil {
					t.Fatalf("LoadConfiguration() expected error but got none")
				}
				if !strings.Contains(err.Error(), tt.errContain) {
					t.Errorf("expected error mentioning %q, got %v", tt.errContain, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfiguration() error = %v", err)
			}
			if config == nil {
				t.Fatal("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	if _, err := LoadConfiguration("nonexistent.yaml"); err == nil {
		t.Error("LoadConfiguration() expected error for a missing file")
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	config, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.Logging.Level != "info" || config.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults %+v", config.Logging)
	}
	if config.Output.Format != constants.OutputFormatPretty {
		t.Errorf("expected output format %q, got %q", constants.OutputFormatPretty, config.Output.Format)
	}
	if config.Store.Driver != constants.StoreDriverMemory {
		t.Errorf("expected memory store, got %q", config.Store.Driver)
	}
	if config.Store.AppID != constants.DefaultAppID {
		t.Errorf("expected app id %q, got %q", constants.DefaultAppID, config.Store.AppID)
	}
	if config.Store.Postgres.PollInterval != 5*time.Second {
		t.Errorf("expected 5s poll interval, got %v", config.Store.Postgres.PollInterval)
	}
	if config.Auth.TokenTTL != 30*time.Minute {
		t.Errorf("expected 30m token ttl, got %v", config.Auth.TokenTTL)
	}
	if config.AdminEnabled() {
		t.Error("expected admin to be disabled without users")
	}
}

func TestLoadConfigurationExample(t *testing.T) {
	config, err := LoadConfiguration("../../" + constants.ExampleConfigFile)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.Defaults == nil {
		t.Fatal("expected example defaults to be loaded")
	}
	weights := config.DefaultWeights()
	if weights.VehicleWeights[constants.VehicleMotorcycle] != 1.15 {
		t.Errorf("expected motorcycle weight 1.15, got %v", weights.VehicleWeights[constants.VehicleMotorcycle])
	}
	if weights.PeriodWeights["1"] != 1.1 {
		t.Errorf("expected period 1 weight 1.1, got %v", weights.PeriodWeights["1"])
	}
	if weights.UsagePeriodWeights[constants.UsageTenYearsPlus] != 1.25 {
		t.Errorf("expected built-in usage weights to survive the merge, got %v", weights.UsagePeriodWeights)
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("PAWN_STORE_DRIVER", "redis")
	t.Setenv("PAWN_STORE_REDIS_ADDR", "cache:6380")
	t.Setenv("PAWN_LOGGING_LEVEL", "warn")

	config, err := LoadConfiguration(writeConfig(t, "logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.Store.Driver != constants.StoreDriverRedis {
		t.Errorf("expected env to select redis, got %q", config.Store.Driver)
	}
	if config.Store.Redis.Addr != "cache:6380" {
		t.Errorf("expected env redis addr, got %q", config.Store.Redis.Addr)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("expected env to override the file log level, got %q", config.Logging.Level)
	}
}

func TestLoadConfigurationDotEnv(t *testing.T) {
	path := writeConfig(t, "output:\n  format: csv\n")
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envPath, []byte("PAWN_STORE_APPID=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("PAWN_STORE_APPID") })

	config, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if config.Store.AppID != "from-dotenv" {
		t.Errorf("expected app id from .env, got %q", config.Store.AppID)
	}
	if config.Output.Format != constants.OutputFormatCSV {
		t.Errorf("expected csv output, got %q", config.Output.Format)
	}
}

func TestDefaultWeights(t *testing.T) {
	config := Configuration{}
	if got := config.DefaultWeights(); got.InitialRate != constants.DefaultInitialRate {
		t.Errorf("expected built-in initial rate, got %v", got.InitialRate)
	}

	config.Defaults = &rates.WeightTable{InitialRate: 3.1}
	got := config.DefaultWeights()
	if got.InitialRate != 3.1 {
		t.Errorf("expected configured initial rate 3.1, got %v", got.InitialRate)
	}
	if got.VehicleWeights[constants.VehicleCar] != 1.0 {
		t.Errorf("expected built-in vehicle weights, got %v", got.VehicleWeights)
	}
}
