package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	AppEnv  string
	AppPort string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	UploadsDir      string
	UploadsPrefix   string
	StaticDir       string
	MaxUploadMemory int64
	CORSOrigins     []string

	SessionTTL          time.Duration
	SessionStore        string
	SessionCookieSecure bool
	RedisAddr           string
	RedisPassword       string
	RedisDB             int

	AdminUsers           string
	AdminCredentialsFile string
	AdminEnforceCatalog  bool
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	env := getenv("APP_ENV", "development")

	return &Config{
		AppEnv:  env,
		AppPort: getenv("APP_PORT", getenv("PORT", "3000")),

		DBDriver:   strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
		DBPath:     getenv("DB_PATH", "db/database.db"),
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		UploadsDir:      getenv("UPLOADS_DIR", "uploads"),
		UploadsPrefix:   getenv("UPLOADS_PREFIX", "/uploads"),
		StaticDir:       os.Getenv("STATIC_DIR"),
		MaxUploadMemory: getenvInt64("MAX_UPLOAD_MEMORY", 32<<20),
		CORSOrigins:     splitList(getenv("CORS_ORIGINS", "http://127.0.0.1:5500")),

		SessionTTL:          getenvDuration("SESSION_TTL", time.Hour),
		SessionStore:        strings.ToLower(getenv("SESSION_STORE", SessionStoreMemory)),
		SessionCookieSecure: env == "production" || getenvBool("SESSION_COOKIE_SECURE", false),
		RedisAddr:           getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             int(getenvInt64("REDIS_DB", 0)),

		AdminUsers:           getenv("ADMIN_USERS", "admin:1234"),
		AdminCredentialsFile: os.Getenv("ADMIN_CREDENTIALS_FILE"),
		AdminEnforceCatalog:  getenvBool("ADMIN_ENFORCE_CATALOG", false),
	}
}

// Validate reports combinations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case DriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}

	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for redis sessions"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	if c.AdminUsers == "" && c.AdminCredentialsFile == "" {
		errs = append(errs, errors.New("either ADMIN_USERS or ADMIN_CREDENTIALS_FILE must be set"))
	}

	return errors.Join(errs...)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
