package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestKeepaMinutesRoundTrip(t *testing.T) {
	if !FromKeepaMinutes(0).Equal(KeepaEpoch) {
		t.Fatalf("offset 0 should be the epoch")
	}
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	m := ToKeepaMinutes(ts)
	if !FromKeepaMinutes(m).Equal(ts) {
		t.Fatalf("round trip mismatch: %v", FromKeepaMinutes(m))
	}
	if FromKeepaMinutes(1440).Day() != 2 {
		t.Fatalf("1440 minutes should be Jan 2")
	}
}
