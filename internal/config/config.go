package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		Port string
	}
	Data struct {
		Dir      string
		Manifest string
	}
	Output struct {
		Dir string
	}
	Train struct {
		Seed     int64
		MinRows  int
		TestFrac float64
	}
}

// Load reads configuration from the environment, optionally preloading a
// .env file. Every variable has a default so the pipeline runs out of the
// box against ./data.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getEnv("STORELENS_PORT", "8050")
	cfg.Data.Dir = getEnv("STORELENS_DATA_DIR", "./data")
	cfg.Data.Manifest = getEnv("STORELENS_MANIFEST", "")
	cfg.Output.Dir = getEnv("STORELENS_OUTPUT_DIR", "./out")

	seed, err := getEnvInt64("STORELENS_SEED", 42)
	if err != nil {
		return nil, err
	}
	cfg.Train.Seed = seed

	minRows, err := getEnvInt64("STORELENS_MIN_TRAIN_ROWS", 50)
	if err != nil {
		return nil, err
	}
	if minRows < 1 {
		return nil, fmt.Errorf("STORELENS_MIN_TRAIN_ROWS must be positive, got %d", minRows)
	}
	cfg.Train.MinRows = int(minRows)
	cfg.Train.TestFrac = 0.2

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q: %w", key, v, err)
	}
	return n, nil
}
