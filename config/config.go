// Package config reads ridestats settings from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config captures runtime configuration for the ridestats commands.
type Config struct {
	DBPath       string
	DataDir      string
	AthleteID    int64 // 0 when unset; commands then need --athlete
	LogLevel     slog.Level
	OutputFormat string // derived sample format: parquet|csv
}

// Load reads environment variables into Config, with defaults suitable for
// working from the current directory. No athlete is selected by default.
func Load() Config {
	dataDir := getEnv("RIDESTATS_DATA_DIR", "data")
	return Config{
		DBPath:       getEnv("RIDESTATS_DB_PATH", filepath.Join(dataDir, "ridestats.db")),
		DataDir:      dataDir,
		AthleteID:    getInt64Env("RIDESTATS_ATHLETE_ID", 0),
		LogLevel:     getLevelEnv("RIDESTATS_LOG_LEVEL", slog.LevelInfo),
		OutputFormat: strings.ToLower(getEnv("RIDESTATS_OUTPUT_FORMAT", "parquet")),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getLevelEnv(key string, fallback slog.Level) slog.Level {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
	}
	return fallback
}
