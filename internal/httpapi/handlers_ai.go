package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mantis/gatewayd/internal/apperr"
)

// buildSchemaContext renders a session's recent AI-context items into a
// compact text block the model can use alongside explicit schema_context.
// context_mode == "off" or a missing session_id drops context rather than
// erroring.
func (s *Server) buildSchemaContext(sessionID, contextMode string, limit int) string {
	if sessionID == "" || contextMode == "off" {
		return ""
	}
	items := s.aiCtx.GetRecent(sessionID, limit)
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *Server) handleAIGenerate(c *gin.Context) {
	var req aiGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindErr(err))
		return
	}

	if s.aiClient == nil {
		writeError(c, apperr.New(apperr.CodeUpstreamError, "AI gateway is not configured"))
		return
	}

	var warnings []string
	if req.SessionID == "" && req.ContextMode != "" && req.ContextMode != "off" {
		warnings = append(warnings, "context_mode requested without session_id; context omitted")
	}

	schemaContext := req.SchemaContext
	if auto := s.buildSchemaContext(req.SessionID, req.ContextMode, req.ContextLimit); auto != "" {
		if schemaContext != "" {
			schemaContext = schemaContext + "\n" + auto
		} else {
			schemaContext = auto
		}
	}

	result, err := s.aiClient.Generate(c.Request.Context(), req.Prompt, req.DBType, schemaContext)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, aiGenerateResponse{Statements: result.Statements, Warnings: warnings})
}

func (s *Server) handleAIContext(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		writeError(c, apperr.InvalidArgument("session_id is required"))
		return
	}
	limit := parseLimit(c.Query("limit"), 10)
	items := s.aiCtx.GetRecent(sessionID, limit)
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleAIContextClear(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		writeError(c, apperr.InvalidArgument("session_id is required"))
		return
	}
	s.aiCtx.Clear(sessionID)
	c.Status(http.StatusNoContent)
}
