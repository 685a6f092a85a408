package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, shared by the advisor CLI
// and the local sandbox server.
type Config struct {
	// Backend API (setoran service).
	APIBaseURL string

	// Identity provider.
	KCBaseURL      string
	KCRealm        string
	KCClientID     string
	KCClientSecret string
	KCScope        string

	HTTPTimeout time.Duration
	LogLevel    string
	LogFormat   string

	// Local state files.
	TokenFile    string
	SnapshotFile string

	// Sandbox server only.
	ServerPort      string
	GinMode         string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
	// AllowedOrigins controls sandbox CORS. Empty slice means all origins
	// are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		APIBaseURL:      getEnv("SETORAN_API_URL", "http://localhost:8080/setoran-dev/v1"),
		KCBaseURL:       getEnv("KC_BASE_URL", "http://localhost:8080"),
		KCRealm:         getEnv("KC_REALM", "dev"),
		KCClientID:      getEnv("KC_CLIENT_ID", "setoran-mobile-dev"),
		KCClientSecret:  getEnv("KC_CLIENT_SECRET", ""),
		KCScope:         getEnv("KC_SCOPE", "openid profile email"),
		HTTPTimeout:     time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "pretty"),
		TokenFile:       getEnv("TOKEN_FILE", stateFile("tokens.json")),
		SnapshotFile:    getEnv("SNAPSHOT_FILE", stateFile("snapshot.json")),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		JWTSecret:       getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_SECONDS", 300)) * time.Second,
		RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_SECONDS", 1800)) * time.Second,
		BcryptCost:      getEnvInt("BCRYPT_COST", 6),
		AllowedOrigins:  parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

// stateFile returns the default path for a local state file under the
// user's home directory, falling back to the working directory.
func stateFile(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".setoran", name)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
