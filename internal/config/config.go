package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)


type Config struct {
	Env string
	BaseURL string
	StateDir string
	HTTPTimeout time.Duration
	CacheTTL time.Duration
	CacheSize int
	RateLimitRPS int
	MetricsAddr string
	OTLPEndpoint string
}

func Load() Config {
	// .env is optional; missing file is not an error
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	baseURL := getEnv("API_BASE_URL", "http://localhost:8080")
	stateDir := getEnv("STATE_DIR", defaultStateDir())
	timeoutSecs := getEnvInt("HTTP_TIMEOUT_SECONDS", 15)
	cacheTTLSecs := getEnvInt("CACHE_TTL_SECONDS", 30)
	cacheSize := getEnvInt("CACHE_SIZE", 256)
	rps := getEnvInt("RATE_LIMIT_RPS", 0)

	return Config{
		Env: env,
		BaseURL: baseURL,
		StateDir: stateDir,
		HTTPTimeout: time.Duration(timeoutSecs) * time.Second,
		CacheTTL: time.Duration(cacheTTLSecs) * time.Second,
		CacheSize: cacheSize,
		RateLimitRPS: rps,
		MetricsAddr: getEnv("METRICS_ADDR", ""),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func defaultStateDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "imtihanctl")
	}

	home, err := os.UserHomeDir()

	if err != nil {
		// last resort: state ends up relative to the working dir
		return ".imtihanctl"
	}

	return filepath.Join(home, ".imtihanctl")
}

func WithTimeout(duration time.Duration)(context.Context, context.CancelFunc){
	return context.WithTimeout(context.Background(),duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
		}

		return num
	}
	return fallback
}
