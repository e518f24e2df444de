package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mantis/gatewayd/internal/apperr"
)

// splitQualifiedName splits a "schema.table" completions/describe name into
// its two halves; a bare name has an empty schema, meaning "use the
// driver's default schema".
func splitQualifiedName(name string) (schema, table string) {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}

func (s *Server) handleConnInfo(c *gin.Context) {
	sess, err := s.resolveSession(c.Query("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	drv, err := s.resolveDriver(sess)
	if err != nil {
		writeError(c, err)
		return
	}
	db, err := s.resolveConn(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}

	info, err := drv.GetDatabaseInfo(c.Request.Context(), db)
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeExecutionError, err, "failed to read database info"))
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleDescribe(c *gin.Context) {
	sess, err := s.resolveSession(c.Query("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	name := c.Query("name")
	if name == "" {
		writeError(c, apperr.InvalidArgument("name is required"))
		return
	}
	detail := c.DefaultQuery("detail", "basic")

	drv, err := s.resolveDriver(sess)
	if err != nil {
		writeError(c, err)
		return
	}
	db, err := s.resolveConn(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}

	schema, table := splitQualifiedName(name)
	if detail == "full" {
		result, err := drv.GetTable(c.Request.Context(), db, schema, table)
		if err != nil {
			writeError(c, apperr.Wrap(apperr.CodeExecutionError, err, "failed to describe table"))
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	result, err := drv.GetColumns(c.Request.Context(), db, schema, table)
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeExecutionError, err, "failed to describe table"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMetaList(c *gin.Context) {
	sess, err := s.resolveSession(c.Query("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	kind := strings.ToLower(c.Query("kind"))
	schema := c.Query("schema")

	drv, err := s.resolveDriver(sess)
	if err != nil {
		writeError(c, err)
		return
	}
	db, err := s.resolveConn(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := drv.ListTables(c.Request.Context(), db, schema)
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeExecutionError, err, "failed to list objects"))
		return
	}
	if kind == "" {
		c.JSON(http.StatusOK, result)
		return
	}

	wantType := strings.ToUpper(kind)
	filtered := result.Tables[:0]
	for _, t := range result.Tables {
		if t.Type == wantType {
			filtered = append(filtered, t)
		}
	}
	result.Tables = filtered
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleExplain(c *gin.Context) {
	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindErr(err))
		return
	}
	sess, err := s.resolveSession(req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	drv, err := s.resolveDriver(sess)
	if err != nil {
		writeError(c, err)
		return
	}
	db, err := s.resolveConn(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}

	plan, err := drv.Explain(c.Request.Context(), db, req.SQL, req.Analyze)
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeExecutionError, err, "failed to explain statement"))
		return
	}
	c.JSON(http.StatusOK, plan)
}

// handleCompletions returns schema/table/column hints depending on which
// query parameters the caller supplied: neither -> schemas, schema only ->
// tables, schema+table -> columns.
func (s *Server) handleCompletions(c *gin.Context) {
	sess, err := s.resolveSession(c.Query("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	schema := c.Query("schema")
	table := c.Query("table")

	drv, err := s.resolveDriver(sess)
	if err != nil {
		writeError(c, err)
		return
	}
	db, err := s.resolveConn(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}

	if schema != "" && table != "" {
		cols, err := drv.GetColumns(c.Request.Context(), db, schema, table)
		if err != nil {
			writeError(c, apperr.Wrap(apperr.CodeExecutionError, err, "failed to fetch column completions"))
			return
		}
		names := make([]string, len(cols.Columns))
		for i, col := range cols.Columns {
			names[i] = col.Name
		}
		c.JSON(http.StatusOK, completionsResponse{Columns: names})
		return
	}

	if schema != "" {
		tables, err := drv.ListTables(c.Request.Context(), db, schema)
		if err != nil {
			writeError(c, apperr.Wrap(apperr.CodeExecutionError, err, "failed to fetch table completions"))
			return
		}
		names := make([]string, len(tables.Tables))
		for i, t := range tables.Tables {
			names[i] = t.Name
		}
		c.JSON(http.StatusOK, completionsResponse{Tables: names})
		return
	}

	schemas, err := drv.ListSchemas(c.Request.Context(), db)
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeExecutionError, err, "failed to fetch schema completions"))
		return
	}
	names := make([]string, len(schemas.Schemas))
	for i, sc := range schemas.Schemas {
		names[i] = sc.Name
	}
	c.JSON(http.StatusOK, completionsResponse{Schemas: names})
}

func (s *Server) handleDriversList(c *gin.Context) {
	c.JSON(http.StatusOK, driversListResponse{Drivers: s.drivers.Names()})
}

func (s *Server) handleDriversReload(c *gin.Context) {
	loaded, err := s.collectors.Reload()
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeConfigWarning, err, "collector reload failed"))
		return
	}
	c.JSON(http.StatusOK, driversReloadResponse{PacksLoaded: loaded})
}

// parseLimit reads a positive integer query parameter, returning def if
// absent or unparsable.
func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
