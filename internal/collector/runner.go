package collector

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mantis/gatewayd/internal/apperr"
	"github.com/mantis/gatewayd/internal/executor"
	"github.com/mantis/gatewayd/internal/protocol"
)

// Runner resolves (collector_id, collector_ref, query_id) triples against
// a live Registry and drives their execution via the executor package.
type Runner struct {
	registry *Registry
	log      *zap.Logger
}

// NewRunner constructs a Runner over registry.
func NewRunner(registry *Registry, log *zap.Logger) *Runner {
	return &Runner{registry: registry, log: log}
}

// resolution is an internal resolved-collector handle threading the pack,
// definition, and collector id through to execution.
type resolution struct {
	pack        *Pack
	collectorID string
	def         Definition
}

// resolveCollector resolves a collector: a well-formed collector_ref is
// tried first against the matching packs; a ref whose pack exists but
// lacks the named collector fails outright, while a ref naming an unknown
// pack falls back to collector_id resolution only when collector_id was
// also supplied. Bare collector_id resolution requires exactly one pack
// to define it; more than one is CollectorAmbiguous.
func (r *Runner) resolveCollector(ctx context.Context, conn executor.Conn, dbType, collectorID, collectorRef string) (*resolution, error) {
	matches := r.registry.GetMatchingConfigs(ctx, conn.DB, dbType)
	if len(matches) == 0 {
		return nil, apperr.New(apperr.CodeCollectorNotFound, "no collector packs for db_type "+dbType)
	}

	if collectorRef != "" {
		packID, id, ok := splitRef(collectorRef)
		if ok {
			for _, p := range matches {
				if p.PackID() != packID {
					continue
				}
				def, found := p.Collectors[id]
				if !found {
					return nil, apperr.Newf(apperr.CodeCollectorNotFound, "collector %q not found in pack %q", id, packID)
				}
				return &resolution{pack: p, collectorID: id, def: def}, nil
			}
			// Pack not found by that id: fall through to collector_id
			// resolution only if collector_id was also supplied.
			if collectorID == "" {
				return nil, apperr.Newf(apperr.CodeCollectorNotFound, "no pack named %q", packID)
			}
		}
	}

	if collectorID != "" {
		var hits []*resolution
		var sourceFiles []string
		for _, p := range matches {
			if def, ok := p.Collectors[collectorID]; ok {
				hits = append(hits, &resolution{pack: p, collectorID: collectorID, def: def})
				sourceFiles = append(sourceFiles, p.SourceFile)
			}
		}
		switch len(hits) {
		case 0:
			return nil, apperr.Newf(apperr.CodeCollectorNotFound, "collector %q not found", collectorID)
		case 1:
			return hits[0], nil
		default:
			return nil, apperr.New(apperr.CodeCollectorAmbiguous, "collector id is ambiguous across packs, use collector_ref").
				WithDetails(map[string]interface{}{"candidates": sourceFiles})
		}
	}

	return nil, apperr.InvalidArgument("either collector_id or collector_ref must be supplied")
}

// splitRef parses "<pack>:<id>" into its two halves.
func splitRef(ref string) (packID, id string, ok bool) {
	i := strings.IndexByte(ref, ':')
	if i < 0 || i == 0 || i == len(ref)-1 {
		return "", "", false
	}
	return ref[:i], ref[i+1:], true
}

// RunCollector resolves and executes a full collector: its ordered layers,
// or its standalone queries, depending on which the definition carries.
func (r *Runner) RunCollector(ctx context.Context, conn executor.Conn, dbType, collectorID, collectorRef string) (*CollectorResult, error) {
	res, err := r.resolveCollector(ctx, conn, dbType, collectorID, collectorRef)
	if err != nil {
		return nil, err
	}

	result := &CollectorResult{
		DBType:      dbType,
		CollectorID: res.collectorID,
		SourceFile:  res.pack.SourceFile,
	}

	if len(res.def.Layers) > 0 {
		result.Layers = r.runLayers(ctx, conn, res.def.Layers)
	} else if len(res.def.Queries) > 0 {
		result.Queries = r.runQueries(ctx, conn, res.def.Queries)
	}
	return result, nil
}

type orderedLayer struct {
	id  string
	cfg LayerConfig
}

func (r *Runner) runLayers(ctx context.Context, conn executor.Conn, layers map[string]LayerConfig) map[string]LayerResult {
	ordered := make([]orderedLayer, 0, len(layers))
	for id, cfg := range layers {
		ordered = append(ordered, orderedLayer{id: id, cfg: cfg})
	}
	sort.Slice(ordered, func(i, j int) bool {
		oi, oj := layerOrder(ordered[i].cfg), layerOrder(ordered[j].cfg)
		if oi != oj {
			return oi < oj
		}
		return ordered[i].id < ordered[j].id
	})

	out := make(map[string]LayerResult, len(ordered))
	for _, l := range ordered {
		rows, err := executor.ExecuteRows(ctx, conn, l.cfg.SQL, l.cfg.SingleRow, nil)
		if err != nil {
			// A failing layer is logged but does not abort the collector;
			// it is simply absent from the output.
			r.log.Warn("collector layer failed", zap.String("layer_id", l.id), zap.Error(err))
			continue
		}
		order := layerOrder(l.cfg)
		out[l.id] = LayerResult{Order: order, RenderHint: l.cfg.RenderHint, Rows: rows}
	}
	return out
}

// layerOrder returns cfg.Order if set, or the maximum int when nil so
// unordered layers sort last.
func layerOrder(cfg LayerConfig) int {
	if cfg.Order == nil {
		return int(^uint(0) >> 1)
	}
	return *cfg.Order
}

func (r *Runner) runQueries(ctx context.Context, conn executor.Conn, queries map[string]QueryConfig) map[string][]protocol.Row {
	out := make(map[string][]protocol.Row, len(queries))
	for id, cfg := range queries {
		rows, err := executor.ExecuteRows(ctx, conn, cfg.SQL, cfg.SingleRow, nil)
		if err != nil {
			r.log.Warn("collector query failed", zap.String("query_id", id), zap.Error(err))
			continue
		}
		out[id] = rows
	}
	return out
}

// RunQuery resolves a single query_id, either within a resolvable
// collector or via the collector-less shorthand (scan every matching
// pack's collectors for an unambiguous query_id hit), and executes it via
// executor.ExecuteResponse. On failure, the cause chain is flattened to
// its deepest message and surfaced as an INTERNAL_ERROR identifying the
// query and the caller-preferred collector identifier.
func (r *Runner) RunQuery(ctx context.Context, conn executor.Conn, dbType, collectorID, collectorRef, queryID string, params map[string]interface{}) (*QueryResult, error) {
	var pack *Pack
	var resolvedCollectorID string
	var cfg QueryConfig

	if collectorID != "" || collectorRef != "" {
		res, err := r.resolveCollector(ctx, conn, dbType, collectorID, collectorRef)
		if err != nil {
			return nil, err
		}
		found, ok := res.def.Queries[queryID]
		if !ok {
			return nil, apperr.Newf(apperr.CodeQueryNotFound, "query %q not found in collector %q", queryID, res.collectorID)
		}
		pack, resolvedCollectorID, cfg = res.pack, res.collectorID, found
	} else {
		matches := r.registry.GetMatchingConfigs(ctx, conn.DB, dbType)
		if len(matches) == 0 {
			return nil, apperr.New(apperr.CodeCollectorNotFound, "no collector packs for db_type "+dbType)
		}
		var candidates []string
		for _, p := range matches {
			for cid, def := range p.Collectors {
				if qc, ok := def.Queries[queryID]; ok {
					pack, resolvedCollectorID, cfg = p, cid, qc
					candidates = append(candidates, p.PackID()+":"+cid)
				}
			}
		}
		switch len(candidates) {
		case 0:
			return nil, apperr.Newf(apperr.CodeQueryNotFound, "query %q not found in any matching collector", queryID)
		case 1:
			// pack/resolvedCollectorID/cfg already set to the sole hit
		default:
			return nil, apperr.New(apperr.CodeCollectorAmbiguous, "query id is ambiguous across collectors, use collector_ref").
				WithDetails(map[string]interface{}{"candidates": candidates})
		}
	}

	resp, err := executor.ExecuteResponse(ctx, conn, cfg.SQL, cfg.SingleRow, params)
	if err != nil {
		detail := identifierDetail(collectorRef, resolvedCollectorID)
		flattened := apperr.FlattenCause(err)
		return nil, apperr.Newf(apperr.CodeInternal, "%s (query_id=%s, collector=%s)", flattened, queryID, detail)
	}

	return &QueryResult{
		DBType:      dbType,
		CollectorID: resolvedCollectorID,
		SourceFile:  pack.SourceFile,
		QueryID:     queryID,
		Description: cfg.Description,
		Result:      *resp,
	}, nil
}

// identifierDetail picks the caller-preferred identifier for error
// messages: collector_ref when given, else the resolved collector_id.
func identifierDetail(collectorRef, collectorID string) string {
	if collectorRef != "" {
		return collectorRef
	}
	return collectorID
}
