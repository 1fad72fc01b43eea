package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"nifty-dashboard/src/helpers"
	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/models"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const profilePrefix = "profile|"

// QuoteCache memoizes provider responses for a freshness TTL. Lookups go to
// memory first, then the persistent store, then the provider. Failures are
// never stored.
type QuoteCache struct {
	Provider interfaces.IMarketDataProvider
	Store    interfaces.IQuoteStore
	TTL      time.Duration
	Logger   *logger.Logger

	now func() time.Time
	mem *gocache.Cache
	sf  singleflight.Group

	hits      atomic.Int64
	storeHits atomic.Int64
	misses    atomic.Int64
	fetches   atomic.Int64
	failures  atomic.Int64
}

// -----------------------------------------------------------------------------

func NewQuoteCache(provider interfaces.IMarketDataProvider, store interfaces.IQuoteStore, ttl time.Duration, log *logger.Logger) *QuoteCache {
	return &QuoteCache{
		Provider: provider,
		Store:    store,
		TTL:      ttl,
		Logger:   log,
		now:      time.Now,
		mem:      gocache.New(gocache.NoExpiration, 0),
	}
}

// -----------------------------------------------------------------------------

// SetClock replaces the time source used for freshness checks.
func (c *QuoteCache) SetClock(now func() time.Time) {
	c.now = now
}

// -----------------------------------------------------------------------------

func seriesKey(ticker string, period models.Period) string {
	return ticker + "|" + string(period)
}

// -----------------------------------------------------------------------------

func (c *QuoteCache) fresh(fetchedAt time.Time) bool {
	return c.now().Sub(fetchedAt) < c.TTL
}

// -----------------------------------------------------------------------------

// GetSeries returns daily history for (ticker, period).
func (c *QuoteCache) GetSeries(ctx context.Context, ticker string, period models.Period) ([]models.MPricePoint, error) {
	key := seriesKey(ticker, period)

	if v, ok := c.mem.Get(key); ok {
		if e := v.(models.MCacheEntry); c.fresh(e.FetchedAt) {
			c.hits.Add(1)
			return e.Payload, nil
		}
	}

	if c.Store != nil {
		entry, err := c.Store.LoadSeries(ticker, period)
		if err != nil {
			c.Logger.Warning("Store lookup for %s failed: %v", key, err)
		} else if entry != nil && c.fresh(entry.FetchedAt) {
			c.storeHits.Add(1)
			c.mem.Set(key, *entry, gocache.NoExpiration)
			return entry.Payload, nil
		}
	}

	c.misses.Add(1)
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		c.fetches.Add(1)
		points, err := c.Provider.FetchHistory(ctx, ticker, period)
		if err != nil {
			return nil, c.fail(ticker, "history", err)
		}
		if len(points) == 0 {
			c.failures.Add(1)
			return nil, helpers.NewEmptySeries(ticker, string(period))
		}

		entry := models.MCacheEntry{Ticker: ticker, Period: period, Payload: points, FetchedAt: c.now()}
		c.mem.Set(key, entry, gocache.NoExpiration)
		if c.Store != nil {
			if err := c.Store.SaveSeries(entry); err != nil {
				c.Logger.Warning("Failed to persist %s: %v", key, err)
			}
		}
		c.Logger.Debug("Fetched %d bars for %s from %s", len(points), key, c.Provider.Name())
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.MPricePoint), nil
}

// -----------------------------------------------------------------------------

// GetProfile returns the company snapshot under the same TTL policy.
func (c *QuoteCache) GetProfile(ctx context.Context, ticker string) (models.MProfileSnapshot, error) {
	key := profilePrefix + ticker

	if v, ok := c.mem.Get(key); ok {
		if e := v.(models.MProfileEntry); c.fresh(e.FetchedAt) {
			c.hits.Add(1)
			return e.Profile, nil
		}
	}

	if c.Store != nil {
		entry, err := c.Store.LoadProfile(ticker)
		if err != nil {
			c.Logger.Warning("Store lookup for %s failed: %v", key, err)
		} else if entry != nil && c.fresh(entry.FetchedAt) {
			c.storeHits.Add(1)
			c.mem.Set(key, *entry, gocache.NoExpiration)
			return entry.Profile, nil
		}
	}

	c.misses.Add(1)
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		c.fetches.Add(1)
		profile, err := c.Provider.FetchProfile(ctx, ticker)
		if err != nil {
			return nil, c.fail(ticker, "profile", err)
		}

		entry := models.MProfileEntry{Ticker: ticker, Profile: profile, FetchedAt: c.now()}
		c.mem.Set(key, entry, gocache.NoExpiration)
		if c.Store != nil {
			if err := c.Store.SaveProfile(entry); err != nil {
				c.Logger.Warning("Failed to persist %s: %v", key, err)
			}
		}
		return profile, nil
	})
	if err != nil {
		return models.MProfileSnapshot{}, err
	}
	return v.(models.MProfileSnapshot), nil
}

// -----------------------------------------------------------------------------

func (c *QuoteCache) fail(ticker, what string, err error) error {
	c.failures.Add(1)
	c.Logger.Warning("%s fetch for %s failed: %v", what, ticker, err)
	if errors.Is(err, helpers.ErrDataUnavailable) {
		return err
	}
	return helpers.NewDataUnavailable(ticker, fmt.Sprintf("%s fetch for %s failed", what, ticker), err)
}

// -----------------------------------------------------------------------------

// Purge drops cached entries for ticker, or everything when ticker is empty.
// It returns the number of memory entries plus store rows removed.
func (c *QuoteCache) Purge(ticker string) (int64, error) {
	var removed int64
	for key := range c.mem.Items() {
		if ticker == "" || strings.HasPrefix(key, ticker+"|") || key == profilePrefix+ticker {
			c.mem.Delete(key)
			removed++
		}
	}

	if c.Store != nil {
		n, err := c.Store.Purge(ticker)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// -----------------------------------------------------------------------------

// DeleteExpired evicts stale memory entries and returns how many were dropped.
func (c *QuoteCache) DeleteExpired() int {
	dropped := 0
	for key, item := range c.mem.Items() {
		var fetchedAt time.Time
		switch e := item.Object.(type) {
		case models.MCacheEntry:
			fetchedAt = e.FetchedAt
		case models.MProfileEntry:
			fetchedAt = e.FetchedAt
		default:
			continue
		}
		if !c.fresh(fetchedAt) {
			c.mem.Delete(key)
			dropped++
		}
	}
	return dropped
}

// -----------------------------------------------------------------------------

func (c *QuoteCache) Stats() models.MCacheStats {
	stats := models.MCacheStats{
		Hits:       c.hits.Load(),
		StoreHits:  c.storeHits.Load(),
		Misses:     c.misses.Load(),
		Fetches:    c.fetches.Load(),
		Failures:   c.failures.Load(),
		Entries:    c.mem.ItemCount(),
		TTLSeconds: int64(c.TTL / time.Second),
		Provider:   c.Provider.Name(),
	}
	if c.Store != nil {
		stats.StoreKind = c.Store.Kind()
	}
	return stats
}
