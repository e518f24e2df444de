package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mantis/gatewayd/internal/apperr"
	"github.com/mantis/gatewayd/internal/executor"
)

// collectorSummary names one (pack, collector_id) pair reachable for a
// session's current dialect and server version.
type collectorSummary struct {
	PackID      string `json:"pack_id"`
	CollectorID string `json:"collector_id"`
	SourceFile  string `json:"source_file"`
}

// querySummary names one runnable query_id within a resolved collector.
type querySummary struct {
	PackID      string `json:"pack_id"`
	CollectorID string `json:"collector_id"`
	QueryID     string `json:"query_id"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleCollectorsList(c *gin.Context) {
	sess, err := s.resolveSession(c.Query("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	db, err := s.resolveConn(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}

	packs := s.collectors.GetMatchingConfigs(c.Request.Context(), db, sess.DBType)
	var out []collectorSummary
	for _, p := range packs {
		for id := range p.Collectors {
			out = append(out, collectorSummary{PackID: p.PackID(), CollectorID: id, SourceFile: p.SourceFile})
		}
	}
	c.JSON(http.StatusOK, gin.H{"collectors": out})
}

func (s *Server) handleCollectorsQueries(c *gin.Context) {
	sess, err := s.resolveSession(c.Query("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	db, err := s.resolveConn(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}
	wantCollectorID := c.Query("collector_id")

	packs := s.collectors.GetMatchingConfigs(c.Request.Context(), db, sess.DBType)
	var out []querySummary
	for _, p := range packs {
		for cid, def := range p.Collectors {
			if wantCollectorID != "" && cid != wantCollectorID {
				continue
			}
			for qid, qc := range def.Queries {
				out = append(out, querySummary{PackID: p.PackID(), CollectorID: cid, QueryID: qid, Description: qc.Description})
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"queries": out})
}

func (s *Server) handleCollectorsRun(c *gin.Context) {
	var req collectorsRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindErr(err))
		return
	}
	sess, err := s.resolveSession(req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	db, err := s.resolveConn(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}

	conn := executor.Conn{DB: db, ReadOnly: sess.Options.ReadOnly}
	if req.QueryID != "" {
		result, err := s.runner.RunQuery(c.Request.Context(), conn, sess.DBType, req.CollectorID, req.CollectorRef, req.QueryID, req.Params)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if req.CollectorID == "" && req.CollectorRef == "" {
		writeError(c, apperr.InvalidArgument("either collector_id, collector_ref, or query_id must be supplied"))
		return
	}
	result, err := s.runner.RunCollector(c.Request.Context(), conn, sess.DBType, req.CollectorID, req.CollectorRef)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
