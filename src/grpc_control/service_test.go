package grpc_control

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"
	"nifty-dashboard/src/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type stubCache struct {
	purged  []string
	failing bool
}

func (c *stubCache) Stats() models.MCacheStats {
	return models.MCacheStats{Hits: 3, Misses: 1, Fetches: 1, Entries: 2, TTLSeconds: 21600, StoreKind: "sqlite", Provider: "yahoo"}
}

func (c *stubCache) Purge(ticker string) (int64, error) {
	if c.failing {
		return 0, errors.New("disk full")
	}
	c.purged = append(c.purged, ticker)
	return 4, nil
}

type stubSessions int

func (s stubSessions) Len() int { return int(s) }

type closedMarkets struct{}

func (closedMarkets) AnyMarketOpen(time.Time) bool { return false }

func dial(t *testing.T, svc *ControlService) *DashboardControlClient {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterDashboardControlServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewDashboardControlClient(conn)
}

func newService(cache *stubCache) *ControlService {
	directory := symbols.NewSymbolDirectory([]models.MSymbolListing{
		{Symbol: "RELIANCE", ExchangeSuffix: ".NS"},
		{Symbol: "TCS", ExchangeSuffix: ".NS"},
		{Symbol: "TATASTEEL", ExchangeSuffix: ".NS"},
	})
	return NewControlService(cache, directory, stubSessions(2), nil, closedMarkets{}, logger.NewLogger(nil, "test"))
}

func TestGetStatus(t *testing.T) {
	client := dial(t, newService(&stubCache{}))

	out, err := client.GetStatus(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	fields := out.AsMap()
	assert.EqualValues(t, 2, fields["sessions"])
	assert.EqualValues(t, 3, fields["symbols"])
	assert.Equal(t, false, fields["market_open"])
	cache := fields["cache"].(map[string]interface{})
	assert.EqualValues(t, 3, cache["hits"])
	assert.Equal(t, "sqlite", cache["store"])
	assert.NotContains(t, fields, "memory_mb")
}

func TestPurgeCache(t *testing.T) {
	cache := &stubCache{}
	client := dial(t, newService(cache))

	out, err := client.PurgeCache(context.Background(), wrapperspb.String("TCS.NS"))
	require.NoError(t, err)
	assert.Equal(t, "TCS.NS", out.AsMap()["ticker"])
	assert.EqualValues(t, 4, out.AsMap()["removed"])

	out, err = client.PurgeCache(context.Background(), wrapperspb.String(""))
	require.NoError(t, err)
	assert.Equal(t, "*", out.AsMap()["ticker"])
	assert.Equal(t, []string{"TCS.NS", ""}, cache.purged)
}

func TestPurgeCacheFailure(t *testing.T) {
	client := dial(t, newService(&stubCache{failing: true}))

	_, err := client.PurgeCache(context.Background(), wrapperspb.String("TCS.NS"))
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestSearchSymbols(t *testing.T) {
	client := dial(t, newService(&stubCache{}))

	out, err := client.SearchSymbols(context.Background(), wrapperspb.String("ta"))
	require.NoError(t, err)
	items := out.AsSlice()
	require.Len(t, items, 1)
	assert.Equal(t, "TATASTEEL.NS", items[0].(map[string]interface{})["value"])

	_, err = client.SearchSymbols(context.Background(), wrapperspb.String(""))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
