package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates runtime configuration for the Bookshell auth gateway.
type Config struct {
	Environment    string
	HTTPPort       int
	LogLevel       string
	AllowedOrigins []string
	DataStore      string
	DatabaseURL    string

	// Backend-as-a-service (GoTrue-compatible) credentials.
	BackendURL        string
	BackendServiceKey string
	BackendAnonKey    string

	// Social providers.
	GoogleWebClientID string
	GoogleIOSClientID string
	KakaoAdminKey     string
	NaverClientID     string
	NaverClientSecret string

	// Login rate limiting (requests per minute per client IP).
	LoginRateLimit int
	LoginRateBurst int
}

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	serviceKey, err := getEnvOrFile("BACKEND_SERVICE_KEY", "/run/secrets/bookshell_backend_service_key")
	if err != nil {
		return Config{}, err
	}

	naverSecret, err := getEnvOrFile("NAVER_CLIENT_SECRET", "/run/secrets/bookshell_naver_client_secret")
	if err != nil {
		return Config{}, err
	}

	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/bookshell_database_url")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:       getEnv("APP_ENV", "development"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins:    parseCSV(getEnv("ALLOWED_ORIGINS", "*")),
		DataStore:         strings.ToLower(getEnv("DATA_STORE", "memory")),
		DatabaseURL:       databaseURL,
		BackendURL:        strings.TrimSuffix(getEnv("BACKEND_URL", ""), "/"),
		BackendServiceKey: strings.TrimSpace(serviceKey),
		BackendAnonKey:    strings.TrimSpace(getEnv("BACKEND_ANON_KEY", "")),
		GoogleWebClientID: getEnv("GOOGLE_WEB_CLIENT_ID", ""),
		GoogleIOSClientID: getEnv("GOOGLE_IOS_CLIENT_ID", ""),
		KakaoAdminKey:     getEnv("KAKAO_ADMIN_KEY", ""),
		NaverClientID:     getEnv("NAVER_CLIENT_ID", ""),
		NaverClientSecret: strings.TrimSpace(naverSecret),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	limit, err := positiveInt("LOGIN_RATE_LIMIT", 30)
	if err != nil {
		return Config{}, err
	}
	cfg.LoginRateLimit = limit

	burst, err := positiveInt("LOGIN_RATE_BURST", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.LoginRateBurst = burst

	if cfg.BackendURL == "" {
		return Config{}, fmt.Errorf("BACKEND_URL is not set")
	}
	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory link repository should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// MissingProviders lists providers whose credentials are absent. Sign-in for
// those providers is degraded rather than refused at startup.
func (c Config) MissingProviders() []string {
	var missing []string
	if c.GoogleWebClientID == "" && c.GoogleIOSClientID == "" {
		missing = append(missing, "google")
	}
	if c.KakaoAdminKey == "" {
		missing = append(missing, "kakao")
	}
	if c.NaverClientID == "" || c.NaverClientSecret == "" {
		missing = append(missing, "naver")
	}
	return missing
}

func positiveInt(key string, fallback int) (int, error) {
	raw := getEnv(key, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return value, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
