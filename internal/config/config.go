package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	// Upstream extraction service turning tracker pages / OCR
	// scoreboards into structured rows.
	ExtractorBaseURL string

	// Elo knobs. The stepping rule is fixed; the values are not.
	EloKCalibrating       int
	EloKStable            int
	EloCalibrationMatches int
	EloInitial            int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:                getEnv("DB_PATH", "customs.db"),
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		ExtractorBaseURL:      getEnv("EXTRACTOR_BASE_URL", ""),
		EloKCalibrating:       getEnvInt("ELO_K_CALIBRATING", 32),
		EloKStable:            getEnvInt("ELO_K_STABLE", 16),
		EloCalibrationMatches: getEnvInt("ELO_CALIBRATION_MATCHES", 10),
		EloInitial:            getEnvInt("ELO_INITIAL", 1000),
	}

	if cfg.EloKCalibrating <= 0 || cfg.EloKStable <= 0 {
		return nil, fmt.Errorf("elo K factors must be positive")
	}
	if cfg.EloKStable > cfg.EloKCalibrating {
		return nil, fmt.Errorf("ELO_K_STABLE must not exceed ELO_K_CALIBRATING")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("elo_k_calibrating", cfg.EloKCalibrating).
		Int("elo_k_stable", cfg.EloKStable).
		Int("elo_calibration_matches", cfg.EloCalibrationMatches).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

