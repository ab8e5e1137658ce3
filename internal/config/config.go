package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Ai      AIConfig
	Cache   CacheConfig
	Events  EventsConfig
}

type AppConfig struct {
	Port               string        `validate:"required,numeric"`
	Environment        string        `validate:"required"`
	LogFilePath        string        `validate:"required"`
	CorsAllowedOrigins string        `validate:"required"`
	SessionSecret      string        `validate:"required,min=16"`
	SessionIdleTTL     time.Duration `validate:"gt=0"`
	// Tokens are not refreshed on activity, so they outlive the idle timer.
	SessionTokenTTL time.Duration `validate:"gtefield=SessionIdleTTL"`
}

type StorageConfig struct {
	Backend     string `validate:"required,oneof=fs s3 gcs"`
	TextbookDir string
	S3          S3Config
	GCS         GCSConfig
	Timeout     time.Duration `validate:"gt=0"`
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	UseSSL          bool
}

type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
}

type AIConfig struct {
	LLMProvider        string `validate:"required,oneof=gemini ollama huggingface"`
	LLMModel           string `validate:"required"`
	GeminiAPIKey       string
	OllamaBaseURL      string
	HuggingFaceAPIKey  string
	HuggingFaceBaseURL string
	Timeout            time.Duration `validate:"gt=0"`
	OpeningTurn        bool
}

type CacheConfig struct {
	Backend    string `validate:"required,oneof=memory redis"`
	RedisURL   string
	ContentTTL time.Duration `validate:"gte=0"`
}

type EventsConfig struct {
	Topic   string `validate:"required"`
	NatsURL string // empty disables forwarding
}

// ErrConfiguration marks every startup configuration failure.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError lists every missing or invalid setting at once.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), strings.Join(e.Problems, "; "))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			SessionSecret:      getEnv("SESSION_SECRET", ""),
			SessionIdleTTL:     getEnvAsDuration("SESSION_IDLE_TTL", time.Hour),
			SessionTokenTTL:    getEnvAsDuration("SESSION_TOKEN_TTL", 24*time.Hour),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getEnv("CONTENT_BACKEND", "fs")),
			TextbookDir: getEnv("TEXTBOOK_DIR", "textbooks"),
			S3: S3Config{
				Endpoint:        getEnv("S3_ENDPOINT", "s3.amazonaws.com"),
				Region:          getEnv("S3_REGION", ""),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Bucket:          getEnv("S3_BUCKET", ""),
				Prefix:          getEnv("S3_PREFIX", ""),
				UseSSL:          getEnvAsBool("S3_USE_SSL", true),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				Prefix:          getEnv("GCS_PREFIX", ""),
				CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			},
			Timeout: getEnvAsDuration("STORAGE_TIMEOUT", 15*time.Second),
		},
		Ai: AIConfig{
			LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			LLMModel:           getEnv("LLM_MODEL", "learnlm-1.5-pro-experimental"),
			GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceAPIKey:  getEnv("HUGGINGFACE_API_KEY", ""),
			HuggingFaceBaseURL: getEnv("HUGGINGFACE_BASE_URL", "https://router.huggingface.co/v1"),
			Timeout:            getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
			OpeningTurn:        getEnvAsBool("TUTOR_OPENING_TURN", true),
		},
		Cache: CacheConfig{
			Backend:    strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
			RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379"),
			ContentTTL: getEnvAsDuration("CONTENT_CACHE_TTL", 0),
		},
		Events: EventsConfig{
			Topic:   getEnv("EVENTS_TOPIC", "tutor.session"),
			NatsURL: getEnv("NATS_URL", ""),
		},
	}
}

// Validate reports every missing or invalid value as a *ConfigurationError.
// Startup must stop when it returns an error.
func (c *Config) Validate() error {
	var problems []string

	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &ConfigurationError{Problems: []string{err.Error()}}
		}
		problems = appendFieldErrors(problems, fieldErrs)
	}

	problems = c.contentProblems(problems)

	switch c.Ai.LLMProvider {
	case "gemini":
		problems = requireSet(problems, "GEMINI_API_KEY", c.Ai.GeminiAPIKey)
	case "ollama":
		problems = requireSet(problems, "OLLAMA_BASE_URL", c.Ai.OllamaBaseURL)
	case "huggingface":
		problems = requireSet(problems, "HUGGINGFACE_API_KEY", c.Ai.HuggingFaceAPIKey)
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// ValidateContent checks only what the content tools need: the storage
// backend and the text cache.
func (c *Config) ValidateContent() error {
	var problems []string
	if err := validator.New().StructPartial(c, "Storage.Backend", "Storage.Timeout", "Cache.Backend", "Cache.ContentTTL"); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &ConfigurationError{Problems: []string{err.Error()}}
		}
		problems = appendFieldErrors(problems, fieldErrs)
	}

	problems = c.contentProblems(problems)
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

func (c *Config) contentProblems(problems []string) []string {
	switch c.Storage.Backend {
	case "fs":
		problems = requireSet(problems, "TEXTBOOK_DIR", c.Storage.TextbookDir)
	case "s3":
		problems = requireSet(problems, "S3_ENDPOINT", c.Storage.S3.Endpoint)
		problems = requireSet(problems, "S3_BUCKET", c.Storage.S3.Bucket)
		problems = requireSet(problems, "AWS_ACCESS_KEY_ID", c.Storage.S3.AccessKeyID)
		problems = requireSet(problems, "AWS_SECRET_ACCESS_KEY", c.Storage.S3.SecretAccessKey)
	case "gcs":
		problems = requireSet(problems, "GCS_BUCKET", c.Storage.GCS.Bucket)
	}

	if c.Cache.Backend == "redis" {
		problems = requireSet(problems, "REDIS_URL", c.Cache.RedisURL)
	}
	return problems
}

func appendFieldErrors(problems []string, fieldErrs validator.ValidationErrors) []string {
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return problems
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func requireSet(problems []string, key, value string) []string {
	if strings.TrimSpace(value) == "" {
		return append(problems, key+" is required")
	}
	return problems
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
