package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string
	StorePath          string
	LogLevel           string
	MirrorBaseURL      string
	MirrorEnabled      bool
	MirrorWorkerCount  int
	MirrorQueueSize    int
	AutoSaveSeconds    int
	TrialQuestionCount int
	TrialTimeSeconds   int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:               envOr("ADDR", ":8080"),
		StorePath:          envOr("STORE_PATH", "file:examtrainer.db"),
		LogLevel:           envOr("LOG_LEVEL", "INFO"),
		MirrorBaseURL:      envOr("MIRROR_BASE_URL", ""),
		MirrorEnabled:      envBoolOr("MIRROR_ENABLED", false),
		MirrorWorkerCount:  envIntOr("MIRROR_WORKER_COUNT", 2),
		MirrorQueueSize:    envIntOr("MIRROR_QUEUE_SIZE", 128),
		AutoSaveSeconds:    envIntOr("AUTO_SAVE_SECONDS", 60),
		TrialQuestionCount: envIntOr("TRIAL_QUESTION_COUNT", 20),
		TrialTimeSeconds:   envIntOr("TRIAL_TIME_SECONDS", 1800),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}
