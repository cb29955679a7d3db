package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	App      AppConfig
	Firebase FirebaseConfig
	Local    LocalConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	LogFormat   string
	Version     string

	// ApplicationID namespaces every persisted key and document path.
	ApplicationID string
	// InitialAuthToken is an optional custom token signed in at startup.
	InitialAuthToken string
	AdminUIDs        []string
}

// FirebaseConfig holds the remote backend credentials. The remote backend is
// enabled only when CredentialsPath is set.
type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
	APIKey          string
	AuthBaseURL     string
	RetryAfter      time.Duration
}

type LocalConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DataDir       string
	PollInterval  time.Duration
}

type SessionConfig struct {
	IdleTimeout      time.Duration
	AutosaveInterval time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		App: AppConfig{
			Environment:      getEnv("APP_ENV", "development"),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			LogFormat:        getEnv("LOG_FORMAT", "console"),
			Version:          getEnv("APP_VERSION", "1.0.0"),
			ApplicationID:    getEnv("APP_ID", "restaurant-planner"),
			InitialAuthToken: getEnv("INITIAL_AUTH_TOKEN", ""),
			AdminUIDs:        getEnvAsList("ADMIN_UIDS", nil),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			APIKey:          getEnv("FIREBASE_API_KEY", ""),
			AuthBaseURL:     getEnv("FIREBASE_AUTH_URL", "https://identitytoolkit.googleapis.com/v1"),
			RetryAfter:      getEnvAsDuration("REMOTE_RETRY_AFTER", 30*time.Second),
		},
		Local: LocalConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			DataDir:       getEnv("LOCAL_DATA_DIR", ".planner-data"),
			PollInterval:  getEnvAsDuration("LOCAL_POLL_INTERVAL", time.Second),
		},
		Session: SessionConfig{
			IdleTimeout:      getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			AutosaveInterval: getEnvAsDuration("AUTOSAVE_INTERVAL", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.App.ApplicationID == "" {
		return fmt.Errorf("APP_ID is required")
	}

	if c.Local.PollInterval <= 0 {
		return fmt.Errorf("LOCAL_POLL_INTERVAL must be positive")
	}

	if c.RemoteConfigured() && c.Firebase.APIKey == "" {
		return fmt.Errorf("FIREBASE_API_KEY is required when FIREBASE_CREDENTIALS_PATH is set")
	}

	return nil
}

// RemoteConfigured reports whether remote backend credentials are present.
func (c *Config) RemoteConfigured() bool {
	return c.Firebase.CredentialsPath != ""
}

func (c *Config) IsAdmin(uid string) bool {
	for _, a := range c.App.AdminUIDs {
		if a == uid {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
