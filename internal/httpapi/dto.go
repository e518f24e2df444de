package httpapi

import "github.com/mantis/gatewayd/internal/sampler"

// connectOptions is the {read_only, use_mcp, connection_timeout_ms}
// connect body field.
type connectOptions struct {
	ReadOnly            bool `json:"read_only"`
	UseMCP              bool `json:"use_mcp"`
	ConnectionTimeoutMs int  `json:"connection_timeout_ms"`
}

// connectRequest is the /v1/connect body.
type connectRequest struct {
	DSN     string         `json:"dsn" binding:"required"`
	DBType  string         `json:"db_type" binding:"required"`
	Options connectOptions `json:"options"`
}

// connectResponse is the /v1/connect body.
type connectResponse struct {
	SessionID string `json:"session_id"`
	DBType    string `json:"db_type"`
	ExpiresAt string `json:"expires_at"`
}

// executeOptions is the {limit, fetch_size, query_timeout_ms} execute
// body field.
type executeOptions struct {
	Limit          int `json:"limit"`
	FetchSize      int `json:"fetch_size"`
	QueryTimeoutMs int `json:"query_timeout_ms"`
}

// executeRequest is the /v1/execute body.
type executeRequest struct {
	SessionID string                 `json:"session_id" binding:"required"`
	SQL       string                 `json:"sql" binding:"required"`
	Params    map[string]interface{} `json:"params"`
	Options   *executeOptions        `json:"options"`
}

// explainRequest is the /v1/meta/explain body.
type explainRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	SQL       string `json:"sql" binding:"required"`
	Analyze   bool   `json:"analyze"`
}

// collectorsRunRequest is the /v1/collectors/run body.
type collectorsRunRequest struct {
	SessionID    string                 `json:"session_id" binding:"required"`
	CollectorID  string                 `json:"collector_id"`
	CollectorRef string                 `json:"collector_ref"`
	QueryID      string                 `json:"query_id"`
	Params       map[string]interface{} `json:"params"`
}

// samplerPutRequest is the PUT /v1/sessions/{sid}/samplers/{id} body: a
// patch merged field-wise over the sampler_id's default definition.
type samplerPutRequest = sampler.SamplerDefinition

// samplerStatusResponse is the GET/PUT/DELETE sampler response shape.
type samplerStatusResponse struct {
	SamplerID string      `json:"sampler_id"`
	State     string      `json:"state"`
	Reason    string      `json:"reason,omitempty"`
	Snapshot  interface{} `json:"snapshot,omitempty"`
}

// aiGenerateRequest is the /v1/ai/generate body.
type aiGenerateRequest struct {
	Prompt        string `json:"prompt" binding:"required"`
	DBType        string `json:"db_type" binding:"required"`
	SessionID     string `json:"session_id"`
	ContextMode   string `json:"context_mode"`
	ContextLimit  int    `json:"context_limit"`
	SchemaContext string `json:"schema_context"`
}

// aiGenerateResponse is the /v1/ai/generate response.
type aiGenerateResponse struct {
	Statements []string `json:"statements"`
	Warnings   []string `json:"warnings,omitempty"`
}

// driversListResponse is the GET /v1/meta/drivers response.
type driversListResponse struct {
	Drivers []string `json:"drivers"`
}

// driversReloadResponse is the POST /v1/meta/drivers/reload response.
type driversReloadResponse struct {
	PacksLoaded int      `json:"packs_loaded"`
	Warnings    []string `json:"warnings,omitempty"`
}

// completionsResponse is the GET /v1/meta/completions response: the
// flattened schema/table/column hints a client-side SQL editor needs.
type completionsResponse struct {
	Schemas []string `json:"schemas,omitempty"`
	Tables  []string `json:"tables,omitempty"`
	Columns []string `json:"columns,omitempty"`
}
