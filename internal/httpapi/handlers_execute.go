package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mantis/gatewayd/internal/executor"
)

func (s *Server) handleExecute(c *gin.Context) {
	var req executeRequest
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
	resp, err := executor.ExecuteAdHoc(c.Request.Context(), conn, req.SQL, req.Params, executorOptions(req.Options))
	if err != nil {
		s.aiCtx.RecordExecuteError(sess.ID, req.SQL, err)
		writeError(c, err)
		return
	}
	s.aiCtx.RecordExecute(sess.ID, req.SQL, resp)

	c.JSON(http.StatusOK, resp)
}
