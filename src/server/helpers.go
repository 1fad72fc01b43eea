package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nifty-dashboard/src/dashboard"
	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/models"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var validation *helpers.ValidationError
	switch {
	case errors.Is(err, helpers.ErrUnknownTicker):
		return http.StatusUnprocessableEntity
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, helpers.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// nginx convention for a client that went away
		return 499
	}
	return http.StatusInternalServerError
}

// -----------------------------------------------------------------------------

func errorBody(message string) gin.H {
	return gin.H{"error": message}
}

// -----------------------------------------------------------------------------

// snapshot describes a session without computing any output.
func snapshot(state *dashboard.DashboardState, kind string) *models.MSessionUpdate {
	return &models.MSessionUpdate{
		Type:      kind,
		SessionID: state.ID,
		Inputs:    state.Inputs(),
		States:    state.States(),
		Timestamp: time.Now().UnixMilli(),
	}
}

// -----------------------------------------------------------------------------

// outputsUpdate labels the outputs with the inputs they were computed from.
func outputsUpdate(sessionID string, outputs []models.MOutput) *models.MSessionUpdate {
	update := &models.MSessionUpdate{
		Type:      "OUTPUTS",
		SessionID: sessionID,
		States:    make(map[models.OutputName]models.OutputState, len(outputs)),
		Outputs:   outputs,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, out := range outputs {
		update.States[out.Name] = out.State
		if out.Name == models.OutputChart {
			update.Inputs = out.Inputs
		}
	}
	return update
}

// -----------------------------------------------------------------------------

func failure(state *dashboard.DashboardState, err error) *models.MSessionUpdate {
	update := snapshot(state, "ERROR")
	update.Error = err.Error()
	return update
}
