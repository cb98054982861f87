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

func TestParseTimeInvalid(t *testing.T) {
	if _, ok := ParseTime(""); ok {
		t.Fatalf("empty string must not parse")
	}
	if _, ok := ParseTime("yesterday"); ok {
		t.Fatalf("garbage must not parse")
	}
}

func TestDayKey(t *testing.T) {
	a := time.Date(2024, 10, 10, 0, 0, 1, 0, time.UTC)
	b := time.Date(2024, 10, 10, 23, 59, 59, 0, time.UTC)
	if DayKey(a) != "2024-10-10" || DayKey(b) != "2024-10-10" {
		t.Fatalf("unexpected day keys %s %s", DayKey(a), DayKey(b))
	}
	if !SameDay(a, b) {
		t.Fatalf("expected same day")
	}
	c := b.Add(time.Second)
	if SameDay(a, c) {
		t.Fatalf("expected different days")
	}
}

func TestDayKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	local := time.Date(2024, 10, 11, 3, 0, 0, 0, loc) // 2024-10-10T18:00Z
	if DayKey(local) != "2024-10-10" {
		t.Fatalf("expected UTC day, got %s", DayKey(local))
	}
}
