package app

import (
	"os"
	"testing"
	"time"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// Clear all env vars that LoadConfig reads so we get pure defaults.
	envVars := []string{
		"HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "ENGINE_BACKEND",
		"LISTEN_PORT_START", "LISTEN_PORT_END", "DATA_DIR", "DEFAULT_SAVE_PATH",
		"MONGO_URI", "MONGO_DB", "MONGO_COLLECTION",
		"QBIT_HOST", "QBIT_USERNAME", "QBIT_PASSWORD",
		"POLL_INTERVAL", "METADATA_TIMEOUT", "SYNC_INTERVAL", "BROADCAST_INTERVAL",
		"CORS_ALLOWED_ORIGINS",
	}
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := LoadConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":8080"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"EngineBackend", cfg.EngineBackend, EngineBackendAnacrolix},
		{"ListenPortStart", cfg.ListenPortStart, 6881},
		{"ListenPortEnd", cfg.ListenPortEnd, 6889},
		{"DataDir", cfg.DataDir, "data"},
		{"DefaultSavePath", cfg.DefaultSavePath, "data"},
		{"MongoURI", cfg.MongoURI, ""},
		{"MongoDatabase", cfg.MongoDatabase, "torrentcore"},
		{"MongoCollection", cfg.MongoCollection, "torrents"},
		{"QBitHost", cfg.QBitHost, "http://localhost:8080"},
		{"QBitUsername", cfg.QBitUsername, "admin"},
		{"QBitPassword", cfg.QBitPassword, ""},
		{"PollInterval", cfg.PollInterval, time.Duration(0)},
		{"MetadataTimeout", cfg.MetadataTimeout, time.Duration(0)},
		{"SyncInterval", cfg.SyncInterval, time.Duration(0)},
		{"BroadcastInterval", cfg.BroadcastInterval, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", tt.got, tt.got, tt.want, tt.want)
			}
		})
	}

	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Errorf("CORSAllowedOrigins: got %v, want nil/empty", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	setEnvs(t, map[string]string{
		"HTTP_ADDR":            ":9090",
		"LOG_LEVEL":            "DEBUG",
		"LOG_FORMAT":           "JSON",
		"ENGINE_BACKEND":       "QBittorrent",
		"LISTEN_PORT_START":    "50000",
		"LISTEN_PORT_END":      "50010",
		"DATA_DIR":             "/mnt/data",
		"DEFAULT_SAVE_PATH":    "/mnt/downloads",
		"MONGO_URI":            "mongodb://remote:27017",
		"MONGO_DB":             "mydb",
		"MONGO_COLLECTION":     "mytorrents",
		"QBIT_HOST":            "http://qbit:9000",
		"QBIT_USERNAME":        "user",
		"QBIT_PASSWORD":        "secret",
		"POLL_INTERVAL":        "2s",
		"METADATA_TIMEOUT":     "5m",
		"SYNC_INTERVAL":        "30s",
		"BROADCAST_INTERVAL":   "1s",
		"CORS_ALLOWED_ORIGINS": "http://localhost:3000, https://example.com",
	})

	cfg := LoadConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":9090"},
		{"LogLevel", cfg.LogLevel, "debug"},
		{"LogFormat", cfg.LogFormat, "json"},
		{"EngineBackend", cfg.EngineBackend, EngineBackendQBittorrent},
		{"ListenPortStart", cfg.ListenPortStart, 50000},
		{"ListenPortEnd", cfg.ListenPortEnd, 50010},
		{"DataDir", cfg.DataDir, "/mnt/data"},
		{"DefaultSavePath", cfg.DefaultSavePath, "/mnt/downloads"},
		{"MongoURI", cfg.MongoURI, "mongodb://remote:27017"},
		{"MongoDatabase", cfg.MongoDatabase, "mydb"},
		{"MongoCollection", cfg.MongoCollection, "mytorrents"},
		{"QBitHost", cfg.QBitHost, "http://qbit:9000"},
		{"QBitUsername", cfg.QBitUsername, "user"},
		{"QBitPassword", cfg.QBitPassword, "secret"},
		{"PollInterval", cfg.PollInterval, 2 * time.Second},
		{"MetadataTimeout", cfg.MetadataTimeout, 5 * time.Minute},
		{"SyncInterval", cfg.SyncInterval, 30 * time.Second},
		{"BroadcastInterval", cfg.BroadcastInterval, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", tt.got, tt.got, tt.want, tt.want)
			}
		})
	}

	wantOrigins := []string{"http://localhost:3000", "https://example.com"}
	if len(cfg.CORSAllowedOrigins) != len(wantOrigins) {
		t.Fatalf("CORSAllowedOrigins: got %d entries, want %d", len(cfg.CORSAllowedOrigins), len(wantOrigins))
	}
	for i, got := range cfg.CORSAllowedOrigins {
		if got != wantOrigins[i] {
			t.Errorf("CORSAllowedOrigins[%d]: got %q, want %q", i, got, wantOrigins[i])
		}
	}
}

func TestGetEnvInt64InvalidFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		envVal   string
		fallback int64
		want     int64
	}{
		{"empty string", "", 42, 42},
		{"not a number", "abc", 42, 42},
		{"negative number", "-5", 42, 42},
		{"zero", "0", 42, 0},
		{"valid positive", "100", 42, 100},
		{"whitespace around number", "  50  ", 42, 50},
		{"float", "3.14", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_VAR", tt.envVal)
			got := getEnvInt64("TEST_INT_VAR", tt.fallback)
			if got != tt.want {
				t.Errorf("getEnvInt64(%q, %d) = %d, want %d", tt.envVal, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestGetEnvDurationInvalidFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		envVal   string
		fallback time.Duration
		want     time.Duration
	}{
		{"empty string", "", time.Second, time.Second},
		{"not a duration", "abc", time.Second, time.Second},
		{"bare number", "5", time.Second, time.Second},
		{"negative duration", "-5s", time.Second, time.Second},
		{"zero", "0s", time.Second, 0},
		{"valid", "250ms", time.Second, 250 * time.Millisecond},
		{"compound", "1m30s", time.Second, 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION_VAR", tt.envVal)
			got := getEnvDuration("TEST_DURATION_VAR", tt.fallback)
			if got != tt.want {
				t.Errorf("getEnvDuration(%q, %v) = %v, want %v", tt.envVal, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", nil},
		{"whitespace only", "   ", nil},
		{"single value", "http://localhost:3000", []string{"http://localhost:3000"}},
		{"multiple values", "a,b,c", []string{"a", "b", "c"}},
		{"values with spaces", " a , b , c ", []string{"a", "b", "c"}},
		{"trailing comma", "a,b,", []string{"a", "b"}},
		{"empty entries filtered", "a,,b,,c", []string{"a", "b", "c"}},
		{"commas only", ",,,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCSV(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("parseCSV(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseCSV(%q) returned %d elements, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("parseCSV(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGetEnvFallback(t *testing.T) {
	t.Setenv("TEST_EXISTING", "hello")

	if got := getEnv("TEST_EXISTING", "default"); got != "hello" {
		t.Errorf("getEnv(existing) = %q, want %q", got, "hello")
	}

	// Unset to test fallback
	t.Setenv("TEST_MISSING_XYZ", "")
	os.Unsetenv("TEST_MISSING_XYZ")
	if got := getEnv("TEST_MISSING_XYZ", "default"); got != "default" {
		t.Errorf("getEnv(missing) = %q, want %q", got, "default")
	}
}

func TestLogLevelCaseInsensitive(t *testing.T) {
	// LoadConfig lowercases LOG_LEVEL, so "DEBUG" -> "debug"
	t.Setenv("LOG_LEVEL", "DEBUG")
	cfg := LoadConfig()
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, "debug")
	}

	t.Setenv("LOG_LEVEL", "Warn")
	cfg = LoadConfig()
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, "warn")
	}
}
