// Package pricehistory decodes interleaved minute-offset/cents price records
// into an ordered PriceSeries.
package pricehistory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ImpulseSaver/internal/domain/models"
	"ImpulseSaver/pkg/util"
)

// Missing marks an absent value in a raw record.
const Missing = -1

var hundred = decimal.NewFromInt(100)

// Result is a normalized series plus the number of pairs that were skipped.
type Result struct {
	Series  models.PriceSeries
	Dropped int
}

// Normalize reads raw two values at a time. Invalid pairs are skipped and
// counted; an odd trailing element is ignored without being counted.
func Normalize(raw []any) Result {
	res := Result{Series: make(models.PriceSeries, 0, len(raw)/2)}
	for i := 0; i+1 < len(raw); i += 2 {
		minutes, ok := toNumber(raw[i])
		if !ok || minutes == Missing {
			res.Dropped++
			continue
		}
		cents, ok := toNumber(raw[i+1])
		if !ok || cents == Missing || cents <= 0 {
			res.Dropped++
			continue
		}
		price, _ := decimal.NewFromFloat(cents).Div(hundred).Float64()
		res.Series = append(res.Series, models.PricePoint{
			Timestamp: util.FromKeepaMinutes(int64(minutes)),
			Price:     price,
		})
	}
	slices.SortStableFunc(res.Series, func(a, b models.PricePoint) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return res
}

// NormalizeJSON decodes a JSON array and normalizes it. Only a malformed
// document is an error; bad elements are dropped like in Normalize.
func NormalizeJSON(data []byte) (Result, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Result{Series: models.PriceSeries{}}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return Result{}, fmt.Errorf("decode price record: %w", err)
	}
	return Normalize(raw), nil
}

// NormalizeRaw normalizes a record held as individual raw JSON elements.
func NormalizeRaw(elems []json.RawMessage) Result {
	raw := make([]any, len(elems))
	for i, e := range elems {
		dec := json.NewDecoder(bytes.NewReader(e))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			v = nil
		}
		raw[i] = v
	}
	return Normalize(raw)
}

// Encode writes the series back into the interleaved raw form.
func Encode(series models.PriceSeries) []any {
	out := make([]any, 0, len(series)*2)
	for _, p := range series {
		cents := decimal.NewFromFloat(p.Price).Mul(hundred).Round(0).IntPart()
		out = append(out, util.ToKeepaMinutes(p.Timestamp), cents)
	}
	return out
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
