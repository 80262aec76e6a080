package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	JWTSecret  string
	JWTTTL     time.Duration
	ServerPort string
	LogMode    string

	CORSAllowOrigins string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	SeedFile string

	DefaultQuestionCount int
	DefaultTimeLimit     int
	MaxQuestionCount     int
	HiddenTopics         []string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "catprep"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "catprep.db"),

		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		JWTTTL:     getEnvDuration("JWT_TTL", 72*time.Hour),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogMode:    getEnv("LOG_MODE", "dev"),

		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 10*time.Minute),

		SeedFile: getEnv("SEED_FILE", "seed/questions.yaml"),

		DefaultQuestionCount: getEnvInt("DEFAULT_QUESTION_COUNT", 10),
		DefaultTimeLimit:     getEnvInt("DEFAULT_TIME_LIMIT", 30),
		MaxQuestionCount:     getEnvInt("MAX_QUESTION_COUNT", 100),
		HiddenTopics:         getEnvList("HIDDEN_TOPICS"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q must be postgres or sqlite", c.DBDriver))
	}
	if c.IsProd() && (c.JWTSecret == "" || c.JWTSecret == "secret") {
		errs = append(errs, errors.New("JWT_SECRET must be set in prod mode"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.DefaultQuestionCount <= 0 || c.MaxQuestionCount <= 0 {
		errs = append(errs, errors.New("question counts must be positive"))
	}
	if c.DefaultQuestionCount > c.MaxQuestionCount {
		errs = append(errs, errors.New("DEFAULT_QUESTION_COUNT exceeds MAX_QUESTION_COUNT"))
	}
	if c.DefaultTimeLimit <= 0 {
		errs = append(errs, errors.New("DEFAULT_TIME_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProd() bool {
	m := strings.ToLower(c.LogMode)
	return m == "prod" || m == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
