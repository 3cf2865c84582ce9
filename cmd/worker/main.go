package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"

	"annotation-judge/internal/config"
	"annotation-judge/internal/db"
	"annotation-judge/internal/llm"
	"annotation-judge/internal/qa"
	"annotation-judge/internal/storage"
	"annotation-judge/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "loading config: %v", err)
	}
	if cfg.RedisAddr == "" {
		clog.FatalContextf(ctx, "REDIS_ADDR is required for the worker")
	}

	store := db.NewStore(db.MustOpen(ctx, cfg.DatabaseURL))
	defer store.Close()

	w := &worker.Server{
		Runner: &qa.Runner{
			Store: store,
			Provider: &llm.Router{
				OpenAI:    llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
				Anthropic: llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicMaxTokens),
			},
			MaxConcurrency: cfg.EvalMaxConcurrency,
			CallTimeout:    cfg.ProviderTimeout,
		},
	}
	if cfg.Storage.Enabled() {
		s3c, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			clog.FatalContextf(ctx, "creating storage client: %v", err)
		}
		w.Archive = s3c
	}

	clog.InfoContextf(ctx, "worker consuming %s from %s", worker.TypeEvaluationRun, cfg.RedisAddr)
	if err := worker.Run(ctx, cfg.RedisAddr, cfg.WorkerConcurrency, w); err != nil {
		clog.FatalContextf(ctx, "worker: %v", err)
	}
}
