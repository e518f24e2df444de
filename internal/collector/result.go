package collector

import "github.com/mantis/gatewayd/internal/protocol"

// LayerResult is one layer's output within a CollectorResult.
type LayerResult struct {
	Order      int                    `json:"order"`
	RenderHint map[string]interface{} `json:"render_hint,omitempty"`
	Rows       []protocol.Row         `json:"rows"`
}

// CollectorResult is the output of running one collector: either its
// ordered layers or its standalone queries (never both populated, per the
// collector's own definition shape).
type CollectorResult struct {
	DBType      string                    `json:"db_type"`
	CollectorID string                    `json:"collector_id"`
	SourceFile  string                    `json:"source_file"`
	Layers      map[string]LayerResult    `json:"layers,omitempty"`
	Queries     map[string][]protocol.Row `json:"queries,omitempty"`
	IntervalSec *int                      `json:"interval_sec,omitempty"`
}

// QueryResult is the output of running a single named query within a
// collector.
type QueryResult struct {
	DBType      string                   `json:"db_type"`
	CollectorID string                   `json:"collector_id"`
	SourceFile  string                   `json:"source_file"`
	QueryID     string                   `json:"query_id"`
	Description string                   `json:"description,omitempty"`
	RenderHint  map[string]interface{}   `json:"render_hint,omitempty"`
	Result      protocol.ExecuteResponse `json:"result"`
}
