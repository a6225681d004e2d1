package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/research"
	"github.com/apresai/researchcast/internal/topics"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/apresai/researchcast/internal/mcpserver")

// Researcher collects search results for a topic.
type Researcher interface {
	Collect(ctx context.Context, topic string) (*research.Bundle, error)
}

// Suggester proposes episode topics for an interest.
type Suggester interface {
	Suggest(ctx context.Context, interest string) ([]topics.Topic, error)
}

// ToolDefs returns the MCP tool definitions, in registration order.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "research_topic",
			Description: "Search the web for a topic and return the top results with the most frequent keywords.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"topic": map[string]any{
						"type":        "string",
						"description": "Topic to research",
					},
				},
				Required: []string{"topic"},
			},
		},
		{
			Name:        "generate_script",
			Description: "Generate a two-speaker podcast script for a topic. Starts an async task and returns a script ID. Use get_script to check progress and fetch the script.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"topic": map[string]any{
						"type":        "string",
						"description": "Episode topic",
					},
					"prompt": map[string]any{
						"type":        "string",
						"description": "Optional steering instructions for the outline and dialogue",
					},
				},
				Required: []string{"topic"},
			},
		},
		{
			Name:        "get_script",
			Description: "Get the status of a script generation by ID. Completed jobs include the script, outline and warnings.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"script_id": map[string]any{
						"type":        "string",
						"description": "The script ID returned from generate_script",
					},
				},
				Required: []string{"script_id"},
			},
		},
		{
			Name:        "list_scripts",
			Description: "List script generations held by this server, newest first.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results (default 20)",
						"default":     20,
					},
				},
			},
		},
		{
			Name:        "cancel_script",
			Description: "Cancel a running script generation.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"script_id": map[string]any{
						"type":        "string",
						"description": "The script ID returned from generate_script",
					},
				},
				Required: []string{"script_id"},
			},
		},
		{
			Name:        "suggest_topics",
			Description: "Suggest podcast episode topics for a broad interest.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"interest": map[string]any{
						"type":        "string",
						"description": "A broad interest, e.g. \"ocean science\"",
					},
				},
				Required: []string{"interest"},
			},
		},
	}
}

type Handlers struct {
	tasks    *TaskManager
	store    *Store
	research Researcher
	topics   Suggester
	log      *slog.Logger
}

func NewHandlers(tasks *TaskManager, store *Store, r Researcher, s Suggester, logger *slog.Logger) *Handlers {
	return &Handlers{tasks: tasks, store: store, research: r, topics: s, log: logger}
}

func (h *Handlers) HandleResearchTopic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.research_topic")
	defer span.End()

	topic := strings.TrimSpace(mcp.ParseString(req, "topic", ""))
	if topic == "" {
		span.SetStatus(codes.Error, "missing topic")
		return mcp.NewToolResultError("topic is required"), nil
	}
	span.SetAttributes(attribute.String("topic", topic))

	bundle, err := h.research.Collect(ctx, topic)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "research failed")
		return mcp.NewToolResultError(fmt.Sprintf("research failed: %v", err)), nil
	}
	span.SetAttributes(attribute.Int("result_count", len(bundle.Results())))
	return jsonResult(bundle)
}

func (h *Handlers) HandleGenerateScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_script")
	defer span.End()

	genReq := pipeline.Request{
		Topic:  strings.TrimSpace(mcp.ParseString(req, "topic", "")),
		Prompt: mcp.ParseString(req, "prompt", ""),
	}
	span.SetAttributes(attribute.String("topic", genReq.Topic))

	if genReq.Topic == "" {
		span.SetStatus(codes.Error, "missing topic")
		return mcp.NewToolResultError("topic is required"), nil
	}

	id, err := h.tasks.StartTask(ctx, genReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start task failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to start task: %v", err)), nil
	}

	span.SetAttributes(attribute.String("script_id", id))
	h.log.InfoContext(ctx, "Script generation submitted", "script_id", id, "topic", genReq.Topic)

	return jsonResult(map[string]any{
		"script_id": id,
		"status":    JobStatusSubmitted,
		"message":   "Script generation started. Use get_script with this script_id to check progress.",
	})
}

func (h *Handlers) HandleGetScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.get_script")
	defer span.End()

	id := mcp.ParseString(req, "script_id", "")
	if id == "" {
		span.SetStatus(codes.Error, "missing script_id")
		return mcp.NewToolResultError("script_id is required"), nil
	}
	span.SetAttributes(attribute.String("script_id", id))

	job := h.store.GetJob(id)
	if job == nil {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("script %s not found", id)), nil
	}
	return jsonResult(job)
}

func (h *Handlers) HandleListScripts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.list_scripts")
	defer span.End()

	limit := parseIntParam(req, "limit", 20)
	span.SetAttributes(attribute.Int("limit", limit))

	jobs := h.store.ListJobs(limit)
	span.SetAttributes(attribute.Int("result_count", len(jobs)))

	scripts := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		s := map[string]any{
			"script_id":  j.ID,
			"topic":      j.Topic,
			"status":     j.Status,
			"created_at": j.CreatedAt,
		}
		if j.Result != nil && j.Result.Outline != nil {
			s["title"] = j.Result.Outline.Title
		}
		if j.ErrorMessage != "" {
			s["error"] = j.ErrorMessage
		}
		scripts = append(scripts, s)
	}
	return jsonResult(map[string]any{
		"scripts": scripts,
		"count":   len(scripts),
	})
}

func (h *Handlers) HandleCancelScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.cancel_script")
	defer span.End()

	id := mcp.ParseString(req, "script_id", "")
	if id == "" {
		span.SetStatus(codes.Error, "missing script_id")
		return mcp.NewToolResultError("script_id is required"), nil
	}
	span.SetAttributes(attribute.String("script_id", id))

	if !h.tasks.CancelTask(id) {
		return mcp.NewToolResultError(fmt.Sprintf("script %s is not running", id)), nil
	}
	h.log.InfoContext(ctx, "Script generation cancelled", "script_id", id)
	return jsonResult(map[string]any{"script_id": id, "cancelled": true})
}

func (h *Handlers) HandleSuggestTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.suggest_topics")
	defer span.End()

	interest := strings.TrimSpace(mcp.ParseString(req, "interest", ""))
	if interest == "" {
		span.SetStatus(codes.Error, "missing interest")
		return mcp.NewToolResultError("interest is required"), nil
	}

	list, err := h.topics.Suggest(ctx, interest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "suggest failed")
		var parseErr *topics.ParseError
		if errors.As(err, &parseErr) {
			return mcp.NewToolResultError(fmt.Sprintf("could not parse suggestions: %v\nraw response: %s", err, parseErr.Raw)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to suggest topics: %v", err)), nil
	}
	span.SetAttributes(attribute.Int("result_count", len(list)))
	return jsonResult(map[string]any{"topics": list})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	raw, ok := args[key]
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}
