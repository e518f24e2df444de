// Package ai implements the AI gateway HTTP client: an OpenAI/Portkey
// -compatible chat-completions caller that enforces a strict
// {"statements": [...]} wire contract on the model's output.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mantis/gatewayd/internal/apperr"
	"github.com/mantis/gatewayd/internal/config"
)

const systemPrompt = `You translate a natural-language request into SQL statements for the given database dialect.
Respond with strict JSON only: {"statements": ["...", ...]}.
Do not include markdown code fences, trailing semicolons, or any text outside the JSON object.`

// Client calls an OpenAI-chat-completions-shaped upstream through Portkey's
// gateway headers.
type Client struct {
	http *resty.Client
	cfg  config.AIConfig
}

// NewClient builds a Client from cfg. Callers should check cfg.Enabled()
// before relying on Generate succeeding.
func NewClient(cfg config.AIConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.portkey.ai/v1"
	}

	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout()).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	if cfg.VirtualKey != "" {
		http.SetHeader("x-portkey-virtual-key", cfg.VirtualKey)
	}

	return &Client{http: http, cfg: cfg}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// GenerateResult is the validated, canonically re-serialized statement set
// returned to the HTTP surface.
type GenerateResult struct {
	Statements []string `json:"statements"`
}

// statementsPayload is the strict JSON shape required from the model.
type statementsPayload struct {
	Statements []string `json:"statements"`
}

// Generate asks the configured model to turn prompt into SQL statements for
// dbType, optionally informed by schemaContext (table/column hints the
// caller assembled). It returns apperr.CodeUpstreamError for any non-2xx
// response or response that fails the strict-JSON contract.
func (c *Client) Generate(ctx context.Context, prompt, dbType, schemaContext string) (*GenerateResult, error) {
	userContent := fmt.Sprintf("Database dialect: %s\n", dbType)
	if schemaContext != "" {
		userContent += "Schema context:\n" + schemaContext + "\n"
	}
	userContent += "Request: " + prompt

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
	}

	var chatResp chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&chatResp).
		Post("/chat/completions")
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstreamError, err, "ai gateway request failed")
	}
	if resp.IsError() {
		return nil, apperr.Newf(apperr.CodeUpstreamError, "ai gateway returned status %d", resp.StatusCode())
	}
	if len(chatResp.Choices) == 0 {
		return nil, apperr.New(apperr.CodeUpstreamError, "ai gateway returned no choices")
	}

	return parseStatements(chatResp.Choices[0].Message.Content)
}

// parseStatements enforces the strict-JSON contract: strips any
// markdown fence the model added despite instructions, validates
// statements is a non-empty array of non-blank strings, and returns each
// statement with surrounding whitespace and trailing semicolons removed.
func parseStatements(content string) (*GenerateResult, error) {
	content = stripMarkdownFence(content)

	var payload statementsPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstreamError, err, "ai gateway returned invalid JSON")
	}

	if len(payload.Statements) == 0 {
		return nil, apperr.New(apperr.CodeUpstreamError, "ai gateway returned no statements")
	}

	cleaned := make([]string, len(payload.Statements))
	for i, stmt := range payload.Statements {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			return nil, apperr.New(apperr.CodeUpstreamError, "ai gateway returned a blank statement")
		}
		cleaned[i] = strings.TrimRight(trimmed, ";")
	}

	return &GenerateResult{Statements: cleaned}, nil
}

func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "json" || firstLine == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
