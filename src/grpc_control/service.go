package grpc_control

import (
	"context"
	"time"

	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CacheControl is the part of the quote cache exposed to operators.
type CacheControl interface {
	Stats() models.MCacheStats
	Purge(ticker string) (int64, error)
}

// SymbolSearcher answers selector searches.
type SymbolSearcher interface {
	Search(query string) ([]models.MTickerOption, bool)
	Len() int
}

// SessionCounter reports active dashboard sessions.
type SessionCounter interface {
	Len() int
}

// RuntimeProbe reports process and market state. Optional.
type RuntimeProbe interface {
	GetProcessMemoryMB() float64
}

type MarketProbe interface {
	AnyMarketOpen(now time.Time) bool
}

// ControlService implements the DashboardControlServer interface
type ControlService struct {
	UnimplementedDashboardControlServer
	Cache    CacheControl
	Symbols  SymbolSearcher
	Sessions SessionCounter
	Memory   RuntimeProbe
	Markets  MarketProbe
	Logger   *logger.Logger
	now      func() time.Time
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cache CacheControl,
	symbols SymbolSearcher,
	sessions SessionCounter,
	memory RuntimeProbe,
	markets MarketProbe,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Cache:    cache,
		Symbols:  symbols,
		Sessions: sessions,
		Memory:   memory,
		Markets:  markets,
		Logger:   log,
		now:      time.Now,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	stats := s.Cache.Stats()
	fields := map[string]interface{}{
		"sessions": s.Sessions.Len(),
		"symbols":  s.Symbols.Len(),
		"cache": map[string]interface{}{
			"hits":        stats.Hits,
			"store_hits":  stats.StoreHits,
			"misses":      stats.Misses,
			"fetches":     stats.Fetches,
			"failures":    stats.Failures,
			"entries":     stats.Entries,
			"ttl_seconds": stats.TTLSeconds,
			"store":       stats.StoreKind,
			"provider":    stats.Provider,
		},
		"timestamp": s.now().Unix(),
	}
	if s.Memory != nil {
		fields["memory_mb"] = s.Memory.GetProcessMemoryMB()
	}
	if s.Markets != nil {
		fields["market_open"] = s.Markets.AnyMarketOpen(s.now())
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode status: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// PurgeCache drops cached quotes for one ticker, or all of them for "".
func (s *ControlService) PurgeCache(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ticker := req.GetValue()

	removed, err := s.Cache.Purge(ticker)
	if err != nil {
		s.Logger.Error("gRPC: purge of %q failed: %v", ticker, err)
		return nil, status.Errorf(codes.Internal, "purge failed: %v", err)
	}

	scope := ticker
	if scope == "" {
		scope = "*"
	}
	s.Logger.Info("gRPC: purged %d cache entries for %s", removed, scope)

	out, err := structpb.NewStruct(map[string]interface{}{
		"ticker":  scope,
		"removed": removed,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) SearchSymbols(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	options, ok := s.Symbols.Search(req.GetValue())
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}

	items := make([]interface{}, 0, len(options))
	for _, o := range options {
		items = append(items, map[string]interface{}{"label": o.Label, "value": o.Value})
	}

	out, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode symbols: %v", err)
	}
	return out, nil
}
