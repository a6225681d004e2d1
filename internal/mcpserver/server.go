// Package mcpserver exposes research, script generation and topic
// suggestions as MCP tools over streamable HTTP.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/mark3labs/mcp-go/server"
)

// Config holds server configuration.
type Config struct {
	Port         int
	MaxTasks     int
	JobTTL       time.Duration
	AWSRegion    string
	SecretPrefix string // e.g. "/researchcast/mcp/"
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig() Config {
	cfg := Config{
		Port:         8000,
		MaxTasks:     5,
		JobTTL:       time.Hour,
		AWSRegion:    envOr("AWS_REGION", "us-east-1"),
		SecretPrefix: os.Getenv("SECRET_PREFIX"),
	}
	if v, err := strconv.Atoi(os.Getenv("MCP_PORT")); err == nil && v > 0 {
		cfg.Port = v
	}
	if v, err := strconv.Atoi(os.Getenv("MCP_MAX_TASKS")); err == nil && v > 0 {
		cfg.MaxTasks = v
	}
	return cfg
}

// Deps are the pipeline pieces the tools call into.
type Deps struct {
	Generator Generator
	Research  Researcher
	Topics    Suggester
}

// Server is the MCP server for script generation.
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	tasks    *TaskManager
	handlers *Handlers
	log      *slog.Logger
}

// New creates and configures the MCP server. baseCtx bounds background
// generation tasks.
func New(baseCtx context.Context, cfg Config, deps Deps, version string, logger *slog.Logger) *Server {
	store := NewStore(cfg.JobTTL)
	taskMgr := NewTaskManager(baseCtx, deps.Generator, store, cfg.MaxTasks, logger)
	handlers := NewHandlers(taskMgr, store, deps.Research, deps.Topics, logger)

	mcpServer := server.NewMCPServer(
		"researchcast",
		version,
		server.WithToolCapabilities(true),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.HandleResearchTopic)
	mcpServer.AddTool(tools[1], handlers.HandleGenerateScript)
	mcpServer.AddTool(tools[2], handlers.HandleGetScript)
	mcpServer.AddTool(tools[3], handlers.HandleListScripts)
	mcpServer.AddTool(tools[4], handlers.HandleCancelScript)
	mcpServer.AddTool(tools[5], handlers.HandleSuggestTopics)

	return &Server{
		cfg:      cfg,
		mcp:      mcpServer,
		tasks:    taskMgr,
		handlers: handlers,
		log:      logger,
	}
}

// Start runs the HTTP MCP server until ctx is cancelled, then waits for
// background tasks to wind down.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("Starting MCP server", "addr", addr, "max_tasks", s.cfg.MaxTasks)

	httpServer := server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
	)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down MCP server", "running_tasks", s.tasks.Running())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("MCP server shutdown", "error", err)
	}
	s.tasks.Wait()
	return nil
}

// SecretsAPI is the subset of the Secrets Manager client used to load keys.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// secretEnvVars are the keys fetched from Secrets Manager when unset.
var secretEnvVars = []string{
	"BRAVE_API_KEY",
	"ANTHROPIC_API_KEY",
	"OPENAI_API_KEY",
	"ELEVENLABS_API_KEY",
}

// LoadSecrets fetches API keys stored under prefix and sets them as env
// vars. Variables already set in the environment win.
func LoadSecrets(ctx context.Context, client SecretsAPI, prefix string, logger *slog.Logger) int {
	loaded := 0
	for _, envVar := range secretEnvVars {
		if os.Getenv(envVar) != "" {
			continue
		}

		secretID := prefix + envVar
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: &secretID,
		})
		if err != nil {
			logger.Info("Secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if result.SecretString != nil && *result.SecretString != "" {
			if err := os.Setenv(envVar, *result.SecretString); err != nil {
				logger.Warn("Set env from secret", "env", envVar, "error", err)
				continue
			}
			loaded++
			logger.Info("Loaded secret", "secret_id", secretID)
		}
	}
	return loaded
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
