package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	ListenAddr       string
	GRPCAddr         string
	AdminAddress     string
	TrustProxy       bool
	StrictAdmin      bool
	MapPreset        string
	MapFile          string
	WindowHex        string
	AdminTokenSecret string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	LogLevel         string
	LogFormat        string
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load(envFiles ...string) Config {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load(envFiles...)

	return Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":3000"),
		GRPCAddr:         getEnv("GRPC_ADDR", ""),
		AdminAddress:     getEnv("ADMIN_ADDRESS", "127.0.0.1"),
		TrustProxy:       parseBool(getEnv("TRUST_PROXY", "false"), false),
		StrictAdmin:      parseBool(getEnv("STRICT_ADMIN", "false"), false),
		MapPreset:        getEnv("MAP_PRESET", DefaultPresetName),
		MapFile:          getEnv("MAP_FILE", ""),
		WindowHex:        strings.ToLower(getEnv("WINDOW_HEX", WINDOW_HEX)),
		AdminTokenSecret: getEnv("ADMIN_TOKEN_SECRET", ""),
		ReadTimeout:      parseDuration(getEnv("READ_TIMEOUT", "15s"), 15*time.Second),
		WriteTimeout:     parseDuration(getEnv("WRITE_TIMEOUT", "15s"), 15*time.Second),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
