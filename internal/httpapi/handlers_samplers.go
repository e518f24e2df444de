package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mantis/gatewayd/internal/apperr"
)

func (s *Server) handleSamplersList(c *gin.Context) {
	sid := c.Param("sid")
	if _, err := s.resolveSession(sid); err != nil {
		writeError(c, err)
		return
	}

	ids := s.samplers.ListSamplerIDs(sid)
	out := make([]samplerStatusResponse, 0, len(ids))
	for _, id := range ids {
		status := s.samplers.Status(sid, id)
		out = append(out, samplerStatusResponse{SamplerID: id, State: status.State, Reason: status.Reason})
	}
	c.JSON(http.StatusOK, gin.H{"samplers": out})
}

func (s *Server) handleSamplerGet(c *gin.Context) {
	sid, id := c.Param("sid"), c.Param("id")
	if _, err := s.resolveSession(sid); err != nil {
		writeError(c, err)
		return
	}

	status := s.samplers.Status(sid, id)
	c.JSON(http.StatusOK, samplerStatusResponse{SamplerID: id, State: status.State, Reason: status.Reason})
}

func (s *Server) handleSamplerPut(c *gin.Context) {
	sid, id := c.Param("sid"), c.Param("id")
	sess, err := s.resolveSession(sid)
	if err != nil {
		writeError(c, err)
		return
	}

	var patch samplerPutRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, bindErr(err))
		return
	}

	inst, err := s.samplers.Upsert(sid, sess.DBType, id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	state, reason := inst.Status()
	c.JSON(http.StatusOK, samplerStatusResponse{SamplerID: id, State: state.String(), Reason: reason})
}

func (s *Server) handleSamplerDelete(c *gin.Context) {
	sid, id := c.Param("sid"), c.Param("id")
	if _, err := s.resolveSession(sid); err != nil {
		writeError(c, err)
		return
	}
	if err := s.samplers.Stop(sid, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSamplerSnapshot(c *gin.Context) {
	sid, id := c.Param("sid"), c.Param("id")
	if _, err := s.resolveSession(sid); err != nil {
		writeError(c, err)
		return
	}

	snap := s.samplers.Snapshot(sid, id)
	if snap == nil {
		writeError(c, apperr.New(apperr.CodeCollectorNotFound, "no snapshot available for sampler "+id))
		return
	}
	c.JSON(http.StatusOK, snap)
}
