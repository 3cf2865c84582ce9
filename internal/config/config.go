// Package config loads process settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port        int    `env:"PORT,default=8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	APIToken    string `env:"API_TOKEN"`

	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey    string        `env:"ANTHROPIC_API_KEY"`
	AnthropicMaxTokens int64         `env:"ANTHROPIC_MAX_TOKENS,default=1024"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT,default=0s"`
	EvalMaxConcurrency int           `env:"EVAL_MAX_CONCURRENCY,default=0"`

	RedisAddr         string `env:"REDIS_ADDR"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=5"`

	Storage Storage
}

// Storage is the S3-compatible archive. It is disabled when Endpoint is
// empty.
type Storage struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	Bucket    string `env:"MINIO_BUCKET,default=judge"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Region    string `env:"MINIO_REGION,default=us-east-1"`
}

func (s Storage) Enabled() bool { return s.Endpoint != "" }

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(ctx context.Context, dotenv ...string) (*Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading dotenv: %w", err)
	}
	return process(ctx, envconfig.OsLookuper())
}

func process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	return &cfg, nil
}
