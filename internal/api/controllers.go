package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/patruff/moltapp-sub001/internal/engine"
	"github.com/patruff/moltapp-sub001/internal/order"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

type placeFunc func(context.Context, order.PlaceRequest) (order.View, error)

// placeOrder binds a placement request; the agent defaults to the token
// subject and may not name anyone else.
func (s *Server) placeOrder(place placeFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID := CurrentAgentID(c)

		var req order.PlaceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid request payload")
			return
		}
		if req.AgentID == "" {
			req.AgentID = agentID
		}
		if req.AgentID != agentID {
			respondError(c, http.StatusForbidden, "AGENT_MISMATCH", "token does not belong to agent "+req.AgentID)
			return
		}

		v, err := place(c.Request.Context(), req)
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, v)
		case errors.Is(err, order.ErrInvalidRequest):
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			respondError(c, http.StatusServiceUnavailable, "TIMEOUT", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
	}
}

func (s *Server) cancelOrder(c *gin.Context) {
	id := c.Param("id")
	v, ok := s.Engine.GetOrder(id)
	if !ok {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		return
	}
	if v.AgentID != CurrentAgentID(c) {
		respondError(c, http.StatusForbidden, "AGENT_MISMATCH", "order belongs to another agent")
		return
	}
	if !s.Engine.Cancel(id) {
		respondError(c, http.StatusConflict, "NOT_CANCELLABLE", "order is no longer active")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "cancelled": true})
}

func (s *Server) cancelAgentOrders(c *gin.Context) {
	agentID := c.Param("agentId")
	if agentID != CurrentAgentID(c) {
		respondError(c, http.StatusForbidden, "AGENT_MISMATCH", "token does not belong to agent "+agentID)
		return
	}
	n := s.Engine.CancelAllForAgent(agentID)
	c.JSON(http.StatusOK, gin.H{"agent_id": agentID, "cancelled": n})
}

func (s *Server) getOrder(c *gin.Context) {
	v, ok := s.Engine.GetOrder(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.AllOrders())
}

func (s *Server) getAgentOrders(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.AgentOrders(c.Param("agentId")))
}

func (s *Server) getSymbolOrders(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.SymbolOrders(c.Param("symbol")))
}

func (s *Server) getHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	if limit == 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	c.JSON(http.StatusOK, s.Engine.History(limit))
}

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.SystemStatus(c.Request.Context()))
}

func (s *Server) getEngineMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Metrics())
}

func (s *Server) getSystemMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "METRICS_DISABLED", "system metrics not configured")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

func (s *Server) startEngine(c *gin.Context) {
	err := s.Engine.Start(s.RunContext)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"running": true})
	case errors.Is(err, engine.ErrAlreadyRunning):
		respondError(c, http.StatusConflict, "ALREADY_RUNNING", err.Error())
	case errors.Is(err, engine.ErrNoPriceFeed):
		respondError(c, http.StatusServiceUnavailable, "NO_PRICE_FEED", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func (s *Server) stopEngine(c *gin.Context) {
	s.Engine.Stop()
	c.JSON(http.StatusOK, gin.H{"running": s.Engine.Running()})
}
