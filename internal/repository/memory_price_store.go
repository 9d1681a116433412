package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
)

// MemoryPriceStore keeps price points in process. Points with the same
// timestamp replace each other, like the ClickHouse table.
type MemoryPriceStore struct {
	mu     sync.RWMutex
	series map[string]map[int64]float64
}

func NewMemoryPriceStore() *MemoryPriceStore {
	return &MemoryPriceStore{series: make(map[string]map[int64]float64)}
}

func memKey(asin string, mp domrepo.Marketplace) string { return string(mp) + "/" + asin }

func (s *MemoryPriceStore) Init(context.Context) error { return nil }

func (s *MemoryPriceStore) StorePoints(_ context.Context, asin string, mp domrepo.Marketplace, points models.PriceSeries) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey(asin, mp)
	m, ok := s.series[key]
	if !ok {
		m = make(map[int64]float64, len(points))
		s.series[key] = m
	}
	for _, p := range points {
		m[p.Timestamp.Unix()] = p.Price
	}
	return nil
}

func (s *MemoryPriceStore) History(_ context.Context, asin string, mp domrepo.Marketplace, from, to time.Time) (models.PriceSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.series[memKey(asin, mp)]
	out := make(models.PriceSeries, 0, len(m))
	lo, hi := from.Unix(), to.Unix()
	for ts, price := range m {
		if ts < lo || ts > hi || price <= 0 {
			continue
		}
		out = append(out, models.PricePoint{Timestamp: time.Unix(ts, 0).UTC(), Price: price})
	}
	slices.SortFunc(out, func(a, b models.PricePoint) int { return a.Timestamp.Compare(b.Timestamp) })
	return out, nil
}

func (s *MemoryPriceStore) Health(context.Context) error { return nil }

func (s *MemoryPriceStore) Close() error { return nil }

var _ domrepo.PriceHistoryStore = (*MemoryPriceStore)(nil)
