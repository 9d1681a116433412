package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domrepo "ImpulseSaver/internal/domain/repository"
	"ImpulseSaver/internal/services/pricehistory"
	pkgkafka "ImpulseSaver/pkg/kafka"
	"ImpulseSaver/pkg/logger"
)

// PriceHistoryHandler consumes raw market-data price records from Kafka,
// normalizes them and writes the points to the price history store.
type PriceHistoryHandler struct {
	topic   string
	store   domrepo.PriceHistoryStore
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewPriceHistoryHandler(topic string, store domrepo.PriceHistoryStore, metrics domrepo.Metrics, log *logger.Logger) *PriceHistoryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PriceHistoryHandler{topic: topic, store: store, metrics: metrics, log: log}
}

func (h *PriceHistoryHandler) Topic() string { return h.topic }

// PriceHistoryMessage is the wire format of the price_history topic.
// Domain is the numeric market-data domain id and wins over Marketplace.
type PriceHistoryMessage struct {
	ASIN        string            `json:"asin"`
	Marketplace string            `json:"marketplace"`
	Domain      int               `json:"domain"`
	CSV         []json.RawMessage `json:"csv"`
}

func (h *PriceHistoryHandler) Handle(ctx context.Context, b []byte) error {
	var m PriceHistoryMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode price history message: %w", err)
	}
	m.ASIN = strings.ToUpper(strings.TrimSpace(m.ASIN))
	if m.ASIN == "" {
		h.recordError("consumer_invalid")
		return fmt.Errorf("price history message: %w", ErrASINRequired)
	}
	mp := domrepo.NormalizeMarketplace(m.Marketplace)
	if byID, ok := domrepo.MarketplaceFromDomainID(m.Domain); ok {
		mp = byID
	}

	norm := pricehistory.NormalizeRaw(m.CSV)
	if norm.Dropped > 0 {
		h.log.Warn("dropped invalid price pairs",
			logger.String("asin", m.ASIN),
			logger.Int("dropped", norm.Dropped),
			logger.Int("kept", len(norm.Series)),
		)
	}
	if len(norm.Series) == 0 {
		return nil
	}

	start := time.Now()
	err := h.store.StorePoints(ctx, m.ASIN, mp, norm.Series)
	if h.metrics != nil {
		h.metrics.RecordLatency("history_insert_seconds", time.Since(start).Seconds())
	}
	if err != nil {
		h.recordError("consumer_store")
		return fmt.Errorf("store price history %s: %w", m.ASIN, err)
	}
	h.log.Debug("price history stored",
		logger.String("asin", m.ASIN),
		logger.String("marketplace", string(mp)),
		logger.Int("points", len(norm.Series)),
	)
	return nil
}

func (h *PriceHistoryHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*PriceHistoryHandler)(nil)
