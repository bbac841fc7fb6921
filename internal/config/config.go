package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string
	CORSOrigin  string
	SiteDir     string

	// Storage
	DataDir       string
	DocumentsFile string
	UsersFile     string

	// Seed administrator
	AdminName     string
	AdminPassword string

	// Sessions
	JWTSecret            string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	CookieSecure         bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8000"),
		Environment:          getEnv("ENVIRONMENT", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		CORSOrigin:           getEnv("CORS_ORIGIN", "*"),
		SiteDir:              getEnv("SITE_DIR", "./sitio"),
		DataDir:              getEnv("DATA_DIR", "./data"),
		DocumentsFile:        getEnv("DOCUMENTS_FILE", "documentos.json"),
		UsersFile:            getEnv("USERS_FILE", "usuarios.json"),
		AdminName:            getEnv("ADMIN_NAME", "Administrador"),
		AdminPassword:        getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		SessionTTL:           time.Duration(getEnvInt("SESSION_TTL_SECONDS", 3600)) * time.Second,
		SessionSweepInterval: time.Duration(getEnvInt("SESSION_SWEEP_SECONDS", 60)) * time.Second,
		CookieSecure:         getEnvBool("COOKIE_SECURE", false),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_SECONDS must be positive")
	}
	if cfg.SessionSweepInterval <= 0 {
		return nil, fmt.Errorf("SESSION_SWEEP_SECONDS must be positive")
	}

	return cfg, nil
}

// DocumentsPath is the snapshot file of the document tree.
func (c *Config) DocumentsPath() string {
	return filepath.Join(c.DataDir, c.DocumentsFile)
}

// UsersPath is the snapshot file of the user directory.
func (c *Config) UsersPath() string {
	return filepath.Join(c.DataDir, c.UsersFile)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return fallback
}
