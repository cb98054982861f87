package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TradeGate/internal/domain/models"
)

var day1 = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

func result(v models.Verdict) models.ValidationResult {
	return models.ValidationResult{Verdict: v, Confidence: 0.9, Source: models.SourceNumeric}
}

func TestGetPutRoundTrip(t *testing.T) {
	c := NewValidationCache(8)
	c.Put("revenue grew 8%", day1, result(models.VerdictEntailment))

	got, ok := c.Get("revenue grew 8%", day1)
	require.True(t, ok)
	require.Equal(t, models.VerdictEntailment, got.Verdict)

	_, ok = c.Get("revenue grew 9%", day1)
	require.False(t, ok)
}

func TestDayBoundaryNeverServesStaleVerdict(t *testing.T) {
	c := NewValidationCache(8)
	c.Put("margin expanded", day1, result(models.VerdictContradiction))

	day2 := day1.Add(24 * time.Hour)
	_, ok := c.Get("margin expanded", day2)
	require.False(t, ok, "prior day's verdict must not be reused")

	// The rotation also dropped the day-1 entry entirely.
	_, ok = c.Get("margin expanded", day1)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestLateAccessForPriorDayKeepsCurrentScope(t *testing.T) {
	c := NewValidationCache(8)
	day2 := day1.Add(24 * time.Hour)
	c.Put("volume spiked", day2, result(models.VerdictEntailment))

	// Interleaved evaluations for an earlier date must not wipe the
	// newer scope on every access.
	_, ok := c.Get("volume spiked", day1)
	require.False(t, ok)
	c.Put("margin expanded", day1, result(models.VerdictNeutral))

	got, ok := c.Get("volume spiked", day2)
	require.True(t, ok)
	require.Equal(t, models.VerdictEntailment, got.Verdict)
}

func TestScheduledRotate(t *testing.T) {
	c := NewValidationCache(8)
	c.Put("eps beat estimates", day1, result(models.VerdictEntailment))
	require.Equal(t, 1, c.Len())

	c.Rotate(day1.Add(24 * time.Hour))
	require.Equal(t, 0, c.Len())
}

func TestLRUEvictionBound(t *testing.T) {
	c := NewValidationCache(3)
	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("claim %d", i), day1, result(models.VerdictNeutral))
	}
	require.Equal(t, 3, c.Len())

	// Oldest two were evicted, newest three survive.
	_, ok := c.Get("claim 0", day1)
	require.False(t, ok)
	_, ok = c.Get("claim 4", day1)
	require.True(t, ok)
}

func TestLRURecencyOnGet(t *testing.T) {
	c := NewValidationCache(2)
	c.Put("a", day1, result(models.VerdictNeutral))
	c.Put("b", day1, result(models.VerdictNeutral))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a", day1)
	require.True(t, ok)

	c.Put("c", day1, result(models.VerdictNeutral))
	_, ok = c.Get("a", day1)
	require.True(t, ok)
	_, ok = c.Get("b", day1)
	require.False(t, ok)
}
