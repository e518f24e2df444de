package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mantis/gatewayd/internal/apperr"
	"github.com/mantis/gatewayd/internal/driver"
	"github.com/mantis/gatewayd/internal/session"
)

// resolveSession looks up session_id from the query string (GET routes)
// or body (already parsed by the caller for POST routes), returning
// SessionNotFound when absent or expired.
func (s *Server) resolveSession(sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, apperr.InvalidArgument("session_id is required")
	}
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperr.SessionNotFound(sessionID)
	}
	return sess, nil
}

// resolveDriver returns the registered driver.Driver for a session's
// dialect.
func (s *Server) resolveDriver(sess *session.Session) (driver.Driver, error) {
	d, err := s.drivers.Get(sess.DBType)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, err, "no driver registered for db_type "+sess.DBType)
	}
	return d, nil
}

// resolveConn returns the pooled *sql.DB for a session, initializing the
// pool on first use.
func (s *Server) resolveConn(ctx context.Context, sess *session.Session) (*sql.DB, error) {
	db, err := s.pools.GetConnection(ctx, sess.ID, sess.DBType, sess.DSN)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConnectionFailure, err, "failed to obtain connection")
	}
	return db, nil
}

func (s *Server) handleConnect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindErr(err))
		return
	}
	if !s.drivers.Has(req.DBType) {
		writeError(c, apperr.InvalidArgument("unknown db_type: %s", req.DBType))
		return
	}

	sess := s.sessions.Create(req.DSN, req.DBType, session.Options{
		ReadOnly:            req.Options.ReadOnly,
		UseMCP:              req.Options.UseMCP,
		ConnectionTimeoutMs: req.Options.ConnectionTimeoutMs,
	})

	timeout := connectTimeout(req.Options.ConnectionTimeoutMs)
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if _, err := s.resolveConn(ctx, sess); err != nil {
		s.sessions.Remove(sess.ID)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, connectResponse{
		SessionID: sess.ID,
		DBType:    sess.DBType,
		ExpiresAt: sess.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *Server) handleDisconnect(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		writeError(c, apperr.InvalidArgument("session_id is required"))
		return
	}

	// Samplers must stop before the pool is closed.
	if err := s.samplers.StopAll(sessionID); err != nil {
		s.log.Warn("disconnect: failed to stop all samplers", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := s.pools.CloseConnection(sessionID); err != nil {
		s.log.Warn("disconnect: failed to close pool", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.aiCtx.Clear(sessionID)
	s.sessions.Remove(sessionID)

	c.Status(http.StatusNoContent)
}
