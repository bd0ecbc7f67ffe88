package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cloo-solutions/mathbot/internal/domain"
)

var (
	ErrMissingLLMKey         = domain.NewDomainError(domain.ErrCodeConfiguration, "MATHBOT_LLM_API_KEY is required")
	ErrInvalidReloadInterval = domain.NewDomainError(domain.ErrCodeConfiguration, "MATHBOT_RELOAD_INTERVAL must not be negative")
	ErrInvalidLimits         = domain.NewDomainError(domain.ErrCodeConfiguration, "query limits must be positive")
)

type Config struct {
	Port         string `envconfig:"PORT" default:"8080"`
	Debug        bool   `envconfig:"DEBUG" default:"false"`
	Environment  string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"`
	APIKey       string `envconfig:"API_KEY"`
	MaxBodyBytes int64  `envconfig:"MAX_BODY_BYTES" default:"65536"`

	SchemaPath     string        `envconfig:"SCHEMA_PATH" default:"data/ontology/math_tbox.ttl"`
	DataPath       string        `envconfig:"DATA_PATH" default:"data/knowledge_graph/math_abox.ttl"`
	Namespace      string        `envconfig:"NAMESPACE" default:"http://snu.ac.kr/math/"`
	ReloadInterval time.Duration `envconfig:"RELOAD_INTERVAL" default:"0"`

	QueryTimeout     time.Duration `envconfig:"QUERY_TIMEOUT" default:"5s"`
	MaxRows          int           `envconfig:"MAX_ROWS" default:"500"`
	MaxPatternTerms  int           `envconfig:"MAX_PATTERN_TERMS" default:"8"`
	MaxTermRunes     int           `envconfig:"MAX_TERM_RUNES" default:"64"`
	MaxPatternBytes  int           `envconfig:"MAX_PATTERN_BYTES" default:"512"`
	MaxQuestionRunes int           `envconfig:"MAX_QUESTION_RUNES" default:"1000"`

	LLMAPIKey           string        `envconfig:"LLM_API_KEY"`
	LLMBaseURL          string        `envconfig:"LLM_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	LLMModel            string        `envconfig:"LLM_MODEL" default:"gemini-2.5-flash"`
	LLMTimeout          time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`
	LLMRetryBackoff     time.Duration `envconfig:"LLM_RETRY_BACKOFF" default:"500ms"`
	LLMTemperature      float32       `envconfig:"LLM_TEMPERATURE" default:"0.2"`
	EmbeddingModel      string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	RedisURL      string        `envconfig:"REDIS_URL"`
	QueryCacheTTL time.Duration `envconfig:"QUERY_CACHE_TTL" default:"24h"`

	Neo4jURI      string `envconfig:"NEO4J_URI"`
	Neo4jUser     string `envconfig:"NEO4J_USER" default:"neo4j"`
	Neo4jPassword string `envconfig:"NEO4J_PASSWORD"`
	Neo4jDatabase string `envconfig:"NEO4J_DATABASE" default:"neo4j"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"mathbot"`

	SentryDSN        string  `envconfig:"SENTRY_DSN"`
	SentrySampleRate float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MATHBOT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks the settings needed to answer questions. Offline commands that never
// call the language model skip it.
func (c *Config) Validate() error {
	var errs []error
	if !c.HasLLM() {
		errs = append(errs, ErrMissingLLMKey)
	}
	if c.ReloadInterval < 0 {
		errs = append(errs, ErrInvalidReloadInterval)
	}
	if c.MaxRows <= 0 || c.MaxPatternTerms <= 0 || c.MaxTermRunes <= 0 || c.MaxPatternBytes <= 0 || c.MaxQuestionRunes <= 0 {
		errs = append(errs, ErrInvalidLimits)
	}
	return errors.Join(errs...)
}

// IsProduction reports whether logs should be emitted as JSON.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func (c *Config) HasLLM() bool {
	return c.LLMAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

func (c *Config) HasNeo4j() bool {
	return c.Neo4jURI != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}
