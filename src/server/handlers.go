package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"nifty-dashboard/src/dashboard"
	"nifty-dashboard/src/models"

	"github.com/gin-gonic/gin"
)

type inputRequest struct {
	Value any `json:"value"`
}

type periodOption struct {
	Label string        `json:"label"`
	Value models.Period `json:"value"`
}

// -----------------------------------------------------------------------------
// Service Endpoints
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := s.connections
	latest := s.latestUpdate
	s.stateMutex.RUnlock()

	body := gin.H{
		"status":        "ok",
		"connections":   connections,
		"sessions":      s.Sessions.Len(),
		"symbols":       s.Directory.Len(),
		"latest_update": latest,
	}
	if s.Quotes != nil {
		body["cache"] = s.Quotes.Stats()
	}
	if s.Memory != nil {
		body["memory_mb"] = s.Memory.GetProcessMemoryMB()
	}
	if s.Markets != nil {
		body["market_open"] = s.Markets.AnyMarketOpen(time.Now())
	}
	c.JSON(http.StatusOK, body)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	periods := make([]periodOption, 0, len(models.AllPeriods))
	for _, p := range models.AllPeriods {
		periods = append(periods, periodOption{Label: p.Label(), Value: p})
	}

	c.JSON(http.StatusOK, gin.H{
		"periods":         periods,
		"moving_averages": s.Config.MovingAverageWindows(),
		"default_period":  s.Config.DefaultPeriod(),
		"currency":        s.Config.Dashboard.Currency,
		"freshness_ttl":   s.Config.FreshnessTTL().String(),
	})
}

// -----------------------------------------------------------------------------
// Symbols
// -----------------------------------------------------------------------------

func (s *APIServer) searchSymbols(c *gin.Context) {
	options, ok := s.Directory.Search(c.Query("q"))
	if !ok {
		// Empty query: leave the selector untouched
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, options)
}

// -----------------------------------------------------------------------------

func (s *APIServer) allSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, s.Directory.All())
}

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

func (s *APIServer) session(c *gin.Context) (*dashboard.DashboardState, bool) {
	state, ok := s.Sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorBody("unknown session"))
	}
	return state, ok
}

// -----------------------------------------------------------------------------

func (s *APIServer) createSession(c *gin.Context) {
	state := s.Sessions.Create()
	c.JSON(http.StatusCreated, snapshot(state, "INITIAL"))
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSession(c *gin.Context) {
	state, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snapshot(state, "STATE"))
}

// -----------------------------------------------------------------------------

func (s *APIServer) deleteSession(c *gin.Context) {
	if !s.Sessions.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, errorBody("unknown session"))
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------

func (s *APIServer) setInput(c *gin.Context) {
	state, ok := s.session(c)
	if !ok {
		return
	}

	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
		return
	}

	name := models.InputName(c.Param("input"))
	if err := state.SetInput(name, req.Value); err != nil {
		c.JSON(statusFor(err), errorBody(err.Error()))
		return
	}

	s.Logger.Debug("Session %s: %s updated", state.ID, name)
	c.JSON(http.StatusOK, snapshot(state, "STATE"))

	// Subscribers get the recomputed outputs without waiting on this request
	go s.pushOutputs(state)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getOutputs(c *gin.Context) {
	state, ok := s.session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.RefreshTimeout)
	defer cancel()

	outputs, err := state.Refresh(ctx)
	if err != nil {
		c.JSON(statusFor(err), errorBody(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": state.ID,
		"inputs":     state.Inputs(),
		"outputs":    outputs,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getOutput(c *gin.Context) {
	state, ok := s.session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.RefreshTimeout)
	defer cancel()

	out, err := state.GetOutput(ctx, models.OutputName(c.Param("name")))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadRequest {
			status = http.StatusNotFound
		}
		c.JSON(status, errorBody(err.Error()))
		return
	}
	c.JSON(http.StatusOK, out)
}

// -----------------------------------------------------------------------------
// Market
// -----------------------------------------------------------------------------

func (s *APIServer) marketStatus(c *gin.Context) {
	ticker := strings.TrimSpace(c.Query("ticker"))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, errorBody("ticker is required"))
		return
	}
	if !s.Directory.Contains(ticker) {
		c.JSON(http.StatusUnprocessableEntity, errorBody("unknown ticker "+ticker))
		return
	}
	c.JSON(http.StatusOK, s.Markets.Status(ticker, time.Now()))
}
