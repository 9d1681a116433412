package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ImpulseSaver/internal/domain/models"
	domrepo "ImpulseSaver/internal/domain/repository"
)

func openTestSQLite(t *testing.T) (*SQLiteCatalog, *SQLiteAnalysisStore) {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "impulse.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	cat := NewSQLiteCatalog(db, nil)
	if err := cat.Init(ctx); err != nil {
		t.Fatalf("catalog init: %v", err)
	}
	store := NewSQLiteAnalysisStore(db)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("analysis init: %v", err)
	}
	return cat, store
}

func TestSQLiteCatalog_SeededFromBuiltin(t *testing.T) {
	cat, _ := openTestSQLite(t)
	ctx := context.Background()

	got, err := cat.Candidates(ctx, "headphones")
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != len(BuiltinCatalog()["headphones"]) {
		t.Fatalf("headphones candidates = %d, want %d", len(got), len(BuiltinCatalog()["headphones"]))
	}
	for _, c := range got {
		if c.ASIN == "" || c.Price <= 0 || c.Rating == nil || c.ReviewCount == nil {
			t.Fatalf("incomplete candidate %+v", c)
		}
	}

	none, err := cat.Candidates(ctx, "no-such-category")
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown category: %v %v", none, err)
	}

	cats, err := cat.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != len(BuiltinCatalog()) {
		t.Fatalf("categories = %v", cats)
	}
}

func TestSQLiteCatalog_InitIsIdempotent(t *testing.T) {
	cat, _ := openTestSQLite(t)
	ctx := context.Background()
	if err := cat.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	got, _ := cat.Candidates(ctx, "books")
	if len(got) != 1 {
		t.Fatalf("books duplicated after re-init: %d", len(got))
	}
}

func TestSQLiteCatalog_SeedUpsertsAndKeepsNulls(t *testing.T) {
	cat, _ := openTestSQLite(t)
	ctx := context.Background()
	n, err := cat.Seed(ctx, map[string][]models.Candidate{
		"toys": {{ASIN: "B000TOY001", Title: "Wooden blocks", Price: 12.5}},
	})
	if err != nil || n != 1 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}
	if _, err := cat.Seed(ctx, map[string][]models.Candidate{
		"toys": {{ASIN: "B000TOY001", Title: "Wooden blocks", Price: 10}},
	}); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	got, _ := cat.Candidates(ctx, "toys")
	if len(got) != 1 || got[0].Price != 10 {
		t.Fatalf("toys = %+v", got)
	}
	if got[0].Rating != nil || got[0].ReviewCount != nil {
		t.Fatalf("null rating/reviews should stay nil: %+v", got[0])
	}
}

func TestSQLiteAnalysisStore_RecentAndSince(t *testing.T) {
	_, store := openTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a1", "a2", "a3"} {
		a := &models.ProductAnalysis{
			ID:           id,
			ASIN:         "B0TEST000" + string(rune('1'+i)),
			Marketplace:  "com",
			Product:      models.ProductData{Title: "Item " + id, Price: "$9.99", ReviewCount: "12", Availability: "Only 1 left"},
			Category:     "general",
			Deal:         models.DealQuality{Quality: models.QualityGood, CurrentPrice: 10 + float64(i)},
			Verdict:      models.VerdictBuy,
			ImpulseScore: 20 + i,
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Save(ctx, a); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	// duplicate id is ignored
	if err := store.Save(ctx, &models.ProductAnalysis{ID: "a1", Timestamp: base}); err != nil {
		t.Fatalf("duplicate save: %v", err)
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "a3" || recent[1].ID != "a2" {
		t.Fatalf("recent order = %+v", recent)
	}
	if recent[0].Quality != models.QualityGood || recent[0].Verdict != models.VerdictBuy || recent[0].ImpulseScore != 22 {
		t.Fatalf("summary fields = %+v", recent[0])
	}
	if recent[0].Listing.Title != "Item a3" || recent[0].Listing.ReviewCount != "12" || recent[0].Listing.Availability != "Only 1 left" {
		t.Fatalf("listing = %+v", recent[0].Listing)
	}
	if !recent[0].Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("timestamp = %v", recent[0].Timestamp)
	}

	since, err := store.Since(ctx, base.Add(30*time.Minute), 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(since) != 2 {
		t.Fatalf("since = %d rows", len(since))
	}
}

func TestStaticCatalog_ReturnsCopy(t *testing.T) {
	c := NewStaticCatalog()
	got, _ := c.Candidates(context.Background(), "laptop")
	if len(got) == 0 {
		t.Fatal("laptop candidates missing")
	}
	got[0].Title = "mutated"
	again, _ := c.Candidates(context.Background(), "laptop")
	if strings.EqualFold(again[0].Title, "mutated") {
		t.Fatal("catalog shares backing array with callers")
	}
	empty, err := c.Candidates(context.Background(), "unknown")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("unknown = %v %v", empty, err)
	}
}

func TestMemoryPriceStore_WindowAndReplace(t *testing.T) {
	s := NewMemoryPriceStore()
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mp := domrepo.Marketplace("com")

	pts := models.PriceSeries{
		{Timestamp: t0.Add(48 * time.Hour), Price: 30},
		{Timestamp: t0, Price: 10},
		{Timestamp: t0.Add(24 * time.Hour), Price: 20},
	}
	if err := s.StorePoints(ctx, "B0TEST0001", mp, pts); err != nil {
		t.Fatalf("store: %v", err)
	}
	_ = s.StorePoints(ctx, "B0TEST0001", mp, models.PriceSeries{{Timestamp: t0, Price: 11}})

	got, _ := s.History(ctx, "B0TEST0001", mp, t0, t0.Add(24*time.Hour))
	if len(got) != 2 || got[0].Price != 11 || got[1].Price != 20 {
		t.Fatalf("history = %+v", got)
	}
	other, _ := s.History(ctx, "B0TEST0001", domrepo.Marketplace("de"), t0, t0.Add(72*time.Hour))
	if len(other) != 0 {
		t.Fatalf("marketplaces must not mix: %+v", other)
	}
}
