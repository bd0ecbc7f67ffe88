package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithEnvVars(t *testing.T) {
	t.Setenv("MATHBOT_PORT", "9090")
	t.Setenv("MATHBOT_DEBUG", "true")
	t.Setenv("MATHBOT_LLM_API_KEY", "sk-test")
	t.Setenv("MATHBOT_LLM_TIMEOUT", "10s")
	t.Setenv("MATHBOT_DATA_PATH", "s3://curriculum/math_abox.ttl")
	t.Setenv("MATHBOT_RELOAD_INTERVAL", "1m")
	t.Setenv("MATHBOT_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("MATHBOT_S3_ACCESS_KEY", "key")
	t.Setenv("MATHBOT_S3_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "sk-test", cfg.LLMAPIKey)
	assert.Equal(t, 10*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "s3://curriculum/math_abox.ttl", cfg.DataPath)
	assert.Equal(t, time.Minute, cfg.ReloadInterval)
	assert.True(t, cfg.HasS3())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://snu.ac.kr/math/", cfg.Namespace)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLMModel)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.LLMRetryBackoff)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 500, cfg.MaxRows)
	assert.Equal(t, 8, cfg.MaxPatternTerms)
	assert.Equal(t, 1000, cfg.MaxQuestionRunes)
	assert.Equal(t, time.Duration(0), cfg.ReloadInterval)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 24*time.Hour, cfg.QueryCacheTTL)
	assert.False(t, cfg.HasDatabase())
	assert.False(t, cfg.HasRedis())
	assert.False(t, cfg.HasNeo4j())
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	assert.True(t, errors.Is(err, ErrMissingLLMKey))

	cfg.LLMAPIKey = "sk-test"
	assert.NoError(t, cfg.Validate())

	cfg.ReloadInterval = -time.Second
	cfg.MaxRows = 0
	err = cfg.Validate()
	assert.True(t, errors.Is(err, ErrInvalidReloadInterval))
	assert.True(t, errors.Is(err, ErrInvalidLimits))
	assert.False(t, errors.Is(err, ErrMissingLLMKey))
}

func TestHasS3(t *testing.T) {
	cfg := &Config{
		S3Endpoint:  "http://localhost:9000",
		S3AccessKey: "key",
		S3SecretKey: "secret",
	}
	assert.True(t, cfg.HasS3())

	cfg.S3Endpoint = ""
	assert.False(t, cfg.HasS3())
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Environment: "production"}).IsProduction())
	assert.False(t, (&Config{Environment: "development"}).IsProduction())
}
