package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Engine backend selectors accepted by ENGINE_BACKEND.
const (
	EngineBackendAnacrolix   = "anacrolix"
	EngineBackendQBittorrent = "qbittorrent"
)

type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	EngineBackend   string
	ListenPortStart int
	ListenPortEnd   int
	DataDir         string
	DefaultSavePath string
	// MongoURI empty means records are kept in memory only.
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	QBitHost        string
	QBitUsername    string
	QBitPassword    string
	// Zero durations defer to the component defaults.
	PollInterval       time.Duration
	MetadataTimeout    time.Duration
	SyncInterval       time.Duration
	BroadcastInterval  time.Duration
	CORSAllowedOrigins []string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		EngineBackend:      strings.ToLower(getEnv("ENGINE_BACKEND", EngineBackendAnacrolix)),
		ListenPortStart:    int(getEnvInt64("LISTEN_PORT_START", 6881)),
		ListenPortEnd:      int(getEnvInt64("LISTEN_PORT_END", 6889)),
		DataDir:            getEnv("DATA_DIR", "data"),
		DefaultSavePath:    getEnv("DEFAULT_SAVE_PATH", "data"),
		MongoURI:           getEnv("MONGO_URI", ""),
		MongoDatabase:      getEnv("MONGO_DB", "torrentcore"),
		MongoCollection:    getEnv("MONGO_COLLECTION", "torrents"),
		QBitHost:           getEnv("QBIT_HOST", "http://localhost:8080"),
		QBitUsername:       getEnv("QBIT_USERNAME", "admin"),
		QBitPassword:       getEnv("QBIT_PASSWORD", ""),
		PollInterval:       getEnvDuration("POLL_INTERVAL", 0),
		MetadataTimeout:    getEnvDuration("METADATA_TIMEOUT", 0),
		SyncInterval:       getEnvDuration("SYNC_INTERVAL", 0),
		BroadcastInterval:  getEnvDuration("BROADCAST_INTERVAL", 5*time.Second),
		CORSAllowedOrigins: parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func parseCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
