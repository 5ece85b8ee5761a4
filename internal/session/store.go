// Package session holds the transient per-browser order record between
// order creation and the payer's return visit. Records are written once at
// creation, read once on return, then explicitly cleared so a later checkout
// in the same browser session never sees stale order data.
package session

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

// Record is the order state carried across the gateway redirect.
type Record struct {
	MerchantOrderID string
	GatewayOrderID  string
	Amount          decimal.Decimal
	Currency        string
}

type Store interface {
	Put(sessionID string, rec Record)
	Get(sessionID string) (Record, bool)
	Clear(sessionID string)
}

const (
	defaultMaxEntries = 10000
	defaultTTL        = time.Hour
)

// MemoryStore is a TTL-bounded in-process store. Eviction caps abandoned
// checkouts; an explicit Clear still happens on every completed return.
type MemoryStore struct {
	cache *expirable.LRU[string, Record]
}

func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{
		cache: expirable.NewLRU[string, Record](maxEntries, nil, ttl),
	}
}

func (s *MemoryStore) Put(sessionID string, rec Record) {
	s.cache.Add(sessionID, rec)
}

func (s *MemoryStore) Get(sessionID string) (Record, bool) {
	return s.cache.Get(sessionID)
}

func (s *MemoryStore) Clear(sessionID string) {
	s.cache.Remove(sessionID)
}
