package models

import "time"

// MCacheEntry is an immutable cached provider response for (ticker, period).
type MCacheEntry struct {
	Ticker    string        `json:"ticker"`
	Period    Period        `json:"period"`
	Payload   []MPricePoint `json:"payload"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// MProfileEntry is an immutable cached profile response.
type MProfileEntry struct {
	Ticker    string           `json:"ticker"`
	Profile   MProfileSnapshot `json:"profile"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// MCacheStats are counters exposed by the quote cache.
type MCacheStats struct {
	Hits       int64  `json:"hits"`
	StoreHits  int64  `json:"store_hits"`
	Misses     int64  `json:"misses"`
	Fetches    int64  `json:"fetches"`
	Failures   int64  `json:"failures"`
	Entries    int    `json:"entries"`
	TTLSeconds int64  `json:"ttl_seconds"`
	StoreKind  string `json:"store"`
	Provider   string `json:"provider"`
}
