package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
)

// MultiSourceManager chains several providers: each call goes to the first
// provider that answers. An empty series is a valid answer and stops the chain.
type MultiSourceManager struct {
	Sources []interfaces.IMarketDataProvider
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IMarketDataProvider, log *logger.Logger) *MultiSourceManager {
	return &MultiSourceManager{
		Sources: sources,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) Name() string {
	names := make([]string, 0, len(m.Sources))
	for _, s := range m.Sources {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

// -----------------------------------------------------------------------------

// GetSource returns a provider by name.
func (m *MultiSourceManager) GetSource(name string) (interfaces.IMarketDataProvider, error) {
	for _, s := range m.Sources {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("source %s not found", name)
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) FetchHistory(ctx context.Context, ticker string, period models.Period) ([]models.MPricePoint, error) {
	return chain(ctx, m, ticker, "history", func(s interfaces.IMarketDataProvider) ([]models.MPricePoint, error) {
		return s.FetchHistory(ctx, ticker, period)
	})
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) FetchProfile(ctx context.Context, ticker string) (models.MProfileSnapshot, error) {
	return chain(ctx, m, ticker, "profile", func(s interfaces.IMarketDataProvider) (models.MProfileSnapshot, error) {
		return s.FetchProfile(ctx, ticker)
	})
}

// -----------------------------------------------------------------------------

func chain[T any](ctx context.Context, m *MultiSourceManager, ticker, what string, call func(interfaces.IMarketDataProvider) (T, error)) (T, error) {
	var zero T
	if len(m.Sources) == 0 {
		return zero, helpers.NewDataUnavailable(ticker, "no market data provider configured", nil)
	}

	var lastErr error
	for _, s := range m.Sources {
		res, err := call(s)
		if err == nil || errors.Is(err, helpers.ErrEmptySeries) {
			return res, err
		}
		if ctx.Err() != nil {
			return zero, helpers.NewDataUnavailable(ticker, fmt.Sprintf("%s fetch cancelled", what), ctx.Err())
		}
		m.Logger.Warning("%s: %s fetch for %s failed: %v", s.Name(), what, ticker, err)
		lastErr = err
	}

	return zero, helpers.NewDataUnavailable(ticker, fmt.Sprintf("%s fetch for %s failed", what, ticker), lastErr)
}
