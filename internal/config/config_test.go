package config

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

const validConfig = `site:
  name: "Ngadirejo"
  latitude: -7.2364
  longitude: 110.0456
variables:
  rainfall:
    title: "Curah Hujan (Rainfall)"
    unit: "mm"
    csv: "Rainfall_Daily_Ngadirejo_historical.csv"
    model_file: "rainfall_final.msgpack"
    agg: "sum"
    color: "blue"
    warning_threshold: 10
  windspeed:
    title: "Kecepatan Angin (Wind Speed)"
    unit: "m/s"
    csv: "WindSpeed_Ngadirejo_Daily.csv"
    model_file: "windspeed_final.msgpack"
    agg: "mean"
    color: "orange"
forecast:
  remote:
    timeout: 30s
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func resetSingleton() {
	instance = nil
	once = sync.Once{}
}

func TestLoad(t *testing.T) {
	resetSingleton()

	cfg, err := Load(writeTempConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if len(cfg.Variables) != 2 {
		t.Errorf("Expected 2 variables, got %d", len(cfg.Variables))
	}

	if cfg.Site.Name != "Ngadirejo" {
		t.Errorf("Expected site name 'Ngadirejo', got '%s'", cfg.Site.Name)
	}

	rain := cfg.Variables["rainfall"]
	if rain.Aggregation != "sum" {
		t.Errorf("Expected rainfall agg 'sum', got '%s'", rain.Aggregation)
	}

	if rain.WarningThreshold == nil || *rain.WarningThreshold != 10 {
		t.Errorf("Expected rainfall warning threshold 10, got %v", rain.WarningThreshold)
	}

	if cfg.Variables["windspeed"].WarningThreshold != nil {
		t.Error("Expected no windspeed warning threshold")
	}

	if cfg.Forecast.Remote.Timeout != 30*time.Second {
		t.Errorf("Expected remote timeout 30s, got %v", cfg.Forecast.Remote.Timeout)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Forecast.Provider != ProviderLive {
		t.Errorf("Provider = %v, want %v", cfg.Forecast.Provider, ProviderLive)
	}
	if cfg.Forecast.Horizon != DefaultHorizon {
		t.Errorf("Horizon = %v, want %v", cfg.Forecast.Horizon, DefaultHorizon)
	}
	if cfg.Forecast.Fallback != "zeros" {
		t.Errorf("Fallback = %v, want zeros", cfg.Forecast.Fallback)
	}
	if cfg.LongTermDays() != DefaultLongTermDays {
		t.Errorf("LongTermDays() = %v, want %v", cfg.LongTermDays(), DefaultLongTermDays)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Server.Addr = %v, want %v", cfg.Server.Addr, DefaultServerAddr)
	}
	if got := cfg.Variables["windspeed"].OpenMeteoField; got != "wind_speed_10m" {
		t.Errorf("windspeed OpenMeteoField = %v, want wind_speed_10m", got)
	}
	if cfg.Collect.PastDays != 7 {
		t.Errorf("Collect.PastDays = %v, want 7", cfg.Collect.PastDays)
	}
}

func TestParse_ExplicitZeroPrecision(t *testing.T) {
	cfg, err := Parse([]byte(validConfig + "  precision: 0\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Precision() != 0 {
		t.Errorf("Precision() = %v, want 0", cfg.Precision())
	}

	cfg, err = Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Precision() != DefaultPrecision {
		t.Errorf("Precision() = %v, want %v", cfg.Precision(), DefaultPrecision)
	}
}

func TestParse_ExplicitZeroLongTermDays(t *testing.T) {
	cfg, err := Parse([]byte(validConfig + "advisory:\n  long_term_days: 0\n  extended: true\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.LongTermDays() != 0 {
		t.Errorf("LongTermDays() = %v, want 0", cfg.LongTermDays())
	}
	if !cfg.Advisory.Extended {
		t.Error("Advisory.Extended = false, want true")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	resetSingleton()

	_, err := Load(writeTempConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	resetSingleton()

	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "missing windspeed",
			mutate:  func(s string) string { return s[:strings.Index(s, "  windspeed:")] },
			wantErr: "variables.windspeed is required",
		},
		{
			name:    "bad aggregation",
			mutate:  func(s string) string { return strings.Replace(s, `agg: "mean"`, `agg: "max"`, 1) },
			wantErr: "invalid config",
		},
		{
			name:    "unknown provider",
			mutate:  func(s string) string { return s + "  provider: crystal_ball\n" },
			wantErr: "invalid config",
		},
		{
			name:    "precomputed without forecast csv",
			mutate:  func(s string) string { return s + "  provider: precomputed\n" },
			wantErr: "forecast_csv is required",
		},
		{
			name:    "latitude out of range",
			mutate:  func(s string) string { return strings.Replace(s, "latitude: -7.2364", "latitude: -97.2", 1) },
			wantErr: "invalid config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.mutate(validConfig)))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestGet(t *testing.T) {
	resetSingleton()

	if _, err := Load(writeTempConfig(t, validConfig)); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	if names := cfg.VariableNames(); len(names) != 2 || names[0] != "rainfall" || names[1] != "windspeed" {
		t.Errorf("VariableNames() = %v, want [rainfall windspeed]", names)
	}
}

func TestGet_Panic(t *testing.T) {
	resetSingleton()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected Get() to panic when config not loaded")
		}
	}()

	Get()
}
