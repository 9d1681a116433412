package pricehistory

import (
	"encoding/json"
	"testing"
	"time"

	"ImpulseSaver/pkg/util"
)

func TestNormalizeDropsInvalidPairs(t *testing.T) {
	raw := []any{
		int64(2000), int64(1999),
		int64(1000), int64(2499),
		int64(3000), int64(-1),
		int64(-1), int64(500),
		int64(4000), int64(0),
		"abc", int64(100),
		nil, int64(100),
		int64(5000), "1299",
		int64(6000), // odd trailing element
	}
	res := Normalize(raw)
	if res.Dropped != 5 {
		t.Fatalf("expected 5 dropped, got %d", res.Dropped)
	}
	if len(res.Series) != 3 {
		t.Fatalf("expected 3 points, got %d", len(res.Series))
	}
	if res.Series[0].Price != 24.99 || res.Series[1].Price != 19.99 || res.Series[2].Price != 12.99 {
		t.Fatalf("unexpected prices %+v", res.Series)
	}
	if !res.Series[0].Timestamp.Equal(util.KeepaEpoch.Add(1000 * time.Minute)) {
		t.Fatalf("unexpected first timestamp %v", res.Series[0].Timestamp)
	}
	for i := 1; i < len(res.Series); i++ {
		if res.Series[i].Timestamp.Before(res.Series[i-1].Timestamp) {
			t.Fatalf("series not sorted")
		}
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if res := Normalize(nil); len(res.Series) != 0 || res.Dropped != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	res := Normalize([]any{int64(-1), int64(-1)})
	if len(res.Series) != 0 || res.Dropped != 1 {
		t.Fatalf("expected all-invalid to yield empty series, got %+v", res)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := []any{int64(9000), int64(1050), int64(100), int64(2999), int64(5000), int64(1)}
	first := Normalize(raw).Series
	second := Normalize(Encode(first)).Series
	if len(first) != len(second) {
		t.Fatalf("length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Timestamp.Equal(second[i].Timestamp) || first[i].Price != second[i].Price {
			t.Fatalf("point %d changed: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNormalizeJSON(t *testing.T) {
	res, err := NormalizeJSON([]byte(`[7000, 4599, 7100, -1, 7200, "x", 7300]`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(res.Series) != 1 || res.Series[0].Price != 45.99 || res.Dropped != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := NormalizeJSON([]byte(`{"not":"an array"}`)); err == nil {
		t.Fatalf("expected decode error")
	}
	res, err = NormalizeJSON(nil)
	if err != nil || len(res.Series) != 0 {
		t.Fatalf("expected empty result for empty input")
	}
}

func TestNormalizeRaw(t *testing.T) {
	elems := []json.RawMessage{json.RawMessage(`100`), json.RawMessage(`250`), json.RawMessage(`{}`), json.RawMessage(`300`)}
	res := NormalizeRaw(elems)
	if len(res.Series) != 1 || res.Series[0].Price != 2.5 || res.Dropped != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}
