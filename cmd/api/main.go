package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/hibiken/asynq"

	"annotation-judge/internal/config"
	"annotation-judge/internal/db"
	httpSrv "annotation-judge/internal/http"
	"annotation-judge/internal/llm"
	"annotation-judge/internal/migrations"
	"annotation-judge/internal/qa"
	"annotation-judge/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "loading config: %v", err)
	}

	// Embedded migrations are idempotent.
	if err := migrations.Run(cfg.DatabaseURL); err != nil {
		clog.FatalContextf(ctx, "running migrations: %v", err)
	}

	dbx, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		clog.FatalContextf(ctx, "opening database: %v", err)
	}
	store := db.NewStore(dbx)
	defer store.Close()

	srv := &httpSrv.Server{
		Store:    store,
		Runner:   newRunner(cfg, store),
		APIToken: cfg.APIToken,
	}
	if cfg.Storage.Enabled() {
		s3c, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			clog.FatalContextf(ctx, "creating storage client: %v", err)
		}
		srv.Archive = s3c
	}
	if cfg.RedisAddr != "" {
		asq := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer asq.Close()
		srv.Queue = asq
	}

	hs := httpSrv.NewServer(srv, fmt.Sprintf(":%d", cfg.Port))
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	clog.InfoContextf(ctx, "listening on %s", hs.Addr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		clog.FatalContextf(ctx, "serving: %v", err)
	}
}

func newRunner(cfg *config.Config, store *db.Store) *qa.Runner {
	return &qa.Runner{
		Store: store,
		Provider: &llm.Router{
			OpenAI:    llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
			Anthropic: llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicMaxTokens),
		},
		MaxConcurrency: cfg.EvalMaxConcurrency,
		CallTimeout:    cfg.ProviderTimeout,
	}
}
