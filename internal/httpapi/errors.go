package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mantis/gatewayd/internal/apperr"
)

const traceIDKey = "trace_id"

// traceMiddleware stamps every request with a trace_id, echoed on error
// responses.
func (s *Server) traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(traceIDKey, uuid.NewString())
		c.Next()
	}
}

// errorPayload is the wire shape of every error response.
type errorPayload struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id"`
}

// writeError maps err to the HTTP status its apperr.Code carries and
// writes the structured error payload. Any error that isn't an *apperr.Error
// is surfaced as an opaque INTERNAL_ERROR rather than leaking its text.
func writeError(c *gin.Context, err error) {
	traceID, _ := c.Get(traceIDKey)
	traceIDStr, _ := traceID.(string)

	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.HTTPStatus(), errorPayload{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
			TraceID: traceIDStr,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, errorPayload{
		Code:    string(apperr.CodeInternal),
		Message: "internal error",
		TraceID: traceIDStr,
	})
}

// bindErr converts a gin binding failure into an InvalidArgument.
func bindErr(err error) *apperr.Error {
	return apperr.Wrap(apperr.CodeInvalidArgument, err, "invalid request body")
}
