package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/apresai/researchcast/internal/config"
	"github.com/apresai/researchcast/internal/mcpserver"
	"github.com/apresai/researchcast/internal/observability"
	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/apresai/researchcast/internal/topics"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var version = "dev"

func main() {
	logger := observability.InitLogger(os.Getenv("RESEARCHCAST_LOG_LEVEL"))
	logger.Info("Researchcast MCP server starting...", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srvCfg := mcpserver.DefaultConfig()

	// Secrets become env vars, so they must be in place before config.Load.
	if srvCfg.SecretPrefix != "" {
		awsCfg, err := config.LoadAWS(ctx, srvCfg.AWSRegion)
		if err != nil {
			logger.Warn("Failed to load AWS config, falling back to env vars", "error", err)
		} else {
			n := mcpserver.LoadSecrets(ctx, secretsmanager.NewFromConfig(awsCfg), srvCfg.SecretPrefix, logger)
			logger.Info("Secrets loaded", "count", n, "prefix", srvCfg.SecretPrefix)
		}
	}

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	tel, err := observability.Init(ctx, cfg, version, logger)
	if err != nil {
		logger.Warn("Failed to init telemetry, continuing without it", "error", err)
	} else {
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				logger.Error("Telemetry shutdown error", "error", err)
			}
		}()
	}

	sink := progress.NopCallback
	if cfg.Progress.NATSURL != "" {
		pub, err := progress.ConnectNATS(cfg.Progress.NATSURL, cfg.Progress.Subject, logger)
		if err != nil {
			logger.Warn("Progress publishing disabled", "error", err)
		} else {
			defer pub.Close()
			sink = pub.Handle
		}
	}

	comp, err := pipeline.Build(ctx, cfg, sink, logger)
	if err != nil {
		logger.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer comp.Close()
	if err := comp.Ready(ctx); err != nil {
		logger.Warn("Starting without full configuration", "error", err)
	}

	srv := mcpserver.New(ctx, srvCfg, mcpserver.Deps{
		Generator: comp.Pipeline,
		Research:  comp.Research,
		Topics:    topics.NewSuggester(comp.LLM, logger),
	}, version, logger)

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
