package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/apresai/researchcast/internal/config"
	"github.com/apresai/researchcast/internal/llm"
	"github.com/apresai/researchcast/internal/outline"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/apresai/researchcast/internal/research"
	"github.com/apresai/researchcast/internal/script"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Components are the configured pieces shared by the CLI, HTTP and MCP
// entry points.
type Components struct {
	Pipeline *Pipeline
	Research *research.Collector
	LLM      *llm.Client
	Redis    *redis.Client

	searchKey bool
}

// Ready reports a missing search or generation credential, or an
// unreachable Redis cache.
func (c *Components) Ready(ctx context.Context) error {
	if !c.searchKey {
		return fmt.Errorf("search: %w: set BRAVE_API_KEY", research.ErrMissingCredential)
	}
	if err := c.LLM.Unavailable(); err != nil {
		return err
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases the Redis connection, if any.
func (c *Components) Close() error {
	if c.Redis != nil {
		return c.Redis.Close()
	}
	return nil
}

// Build wires the stages from cfg. A missing search or generation key is
// not an error here; Ready reports it and runs fail with a configuration
// error.
func Build(ctx context.Context, cfg config.Config, cb progress.Callback, logger *slog.Logger) (*Components, error) {
	client, err := llm.NewFromConfig(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}

	searcher := research.NewBraveSearcher(cfg.Search.APIKey,
		research.WithBraveBaseURL(cfg.Search.BaseURL),
		research.WithBraveCount(cfg.Search.MaxResults),
		research.WithBraveClient(&http.Client{
			Timeout:   cfg.Search.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	)
	opts := []research.Option{research.WithLogger(logger)}

	var rdb *redis.Client
	if cfg.Cache.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		opts = append(opts, research.WithCache(research.NewRedisCache(rdb, cfg.Cache.TTL)))
		logger.Info("Research cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	}

	expander := script.NewExpander(client, script.ExpanderOptions{
		Targets: script.Targets{
			Intro:      cfg.Expansion.IntroTarget,
			Subtopic:   cfg.Expansion.SubtopicTarget,
			Conclusion: cfg.Expansion.ConclusionTarget,
		},
		MaxIterations: cfg.Expansion.MaxIterations,
		Parallelism:   cfg.Expansion.Parallelism,
	}, logger)

	collector := research.NewCollector(searcher, opts...)
	p := New(
		collector,
		outline.NewSynthesizer(client, logger),
		expander,
		Options{Deadline: cfg.Deadline, Progress: cb, Logger: logger},
	)
	return &Components{Pipeline: p, Research: collector, LLM: client, Redis: rdb, searchKey: cfg.Search.APIKey != ""}, nil
}
