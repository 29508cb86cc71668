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

func TestParsePubDate(t *testing.T) {
	got, ok := ParsePubDate("Mon, 02 Jan 2006 15:04:05 -0700")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2006 {
		t.Fatalf("unexpected year %d", got.Year())
	}

	got, ok = ParsePubDate("Mon, 02 Jan 2006 15:04:05 GMT")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Month() != time.January {
		t.Fatalf("unexpected month %v", got.Month())
	}

	if _, ok := ParsePubDate("not a date"); ok {
		t.Fatalf("expected failure")
	}
}

func TestDateKey(t *testing.T) {
	got := DateKey(time.Date(2025, 3, 9, 23, 30, 0, 0, time.FixedZone("EST", -5*3600)))
	if got != "2025-03-10" {
		t.Fatalf("unexpected key %s", got)
	}
}
