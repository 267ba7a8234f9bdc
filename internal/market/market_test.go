package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithinTolerance(t *testing.T) {
	base := OHLCV{Open: 100.0, High: 101.5, Low: 99.25, Close: 100.75, Volume: 1500}

	t.Run("identical values match", func(t *testing.T) {
		assert.True(t, base.WithinTolerance(base, DefaultTolerance))
	})

	t.Run("sub-tolerance noise matches", func(t *testing.T) {
		noisy := base
		noisy.Close += 0.0005
		noisy.Volume -= 0.0009
		assert.True(t, base.WithinTolerance(noisy, DefaultTolerance))
	})

	t.Run("single field beyond tolerance fails", func(t *testing.T) {
		revised := base
		revised.Close += 0.002
		assert.False(t, base.WithinTolerance(revised, DefaultTolerance))
	})

	t.Run("negative difference is symmetric", func(t *testing.T) {
		revised := base
		revised.Low -= 0.002
		assert.False(t, base.WithinTolerance(revised, DefaultTolerance))
		assert.False(t, revised.WithinTolerance(base, DefaultTolerance))
	})

	t.Run("custom tolerance", func(t *testing.T) {
		revised := base
		revised.Open += 0.5
		assert.True(t, base.WithinTolerance(revised, 1.0))
		assert.False(t, base.WithinTolerance(revised, 0.1))
	})
}

func TestNormalizeTags(t *testing.T) {
	t.Run("trims dedupes and sorts", func(t *testing.T) {
		got := NormalizeTags([]string{" trend_day", "momentum", "trend_day", "", "momentum "})
		assert.Equal(t, []string{"momentum", "trend_day"}, got)
	})

	t.Run("unicode composition collapses", func(t *testing.T) {
		// "é" as a precomposed rune vs 'e' + combining acute accent.
		got := NormalizeTags([]string{"caf\u00e9", "cafe\u0301"})
		assert.Equal(t, []string{"caf\u00e9"}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, NormalizeTags(nil))
	})
}

func TestAnyTagMatches(t *testing.T) {
	have := NormalizeTags([]string{"momentum", "trend_day"})

	t.Run("or semantics", func(t *testing.T) {
		assert.True(t, AnyTagMatches(have, []string{"trend_day", "reversal"}))
	})

	t.Run("no overlap", func(t *testing.T) {
		assert.False(t, AnyTagMatches(have, []string{"reversal", "gap_fill"}))
	})

	t.Run("empty filter matches everything", func(t *testing.T) {
		assert.True(t, AnyTagMatches(have, nil))
		assert.True(t, AnyTagMatches(nil, nil))
	})

	t.Run("empty tags match nothing", func(t *testing.T) {
		assert.False(t, AnyTagMatches(nil, []string{"trend_day"}))
	})
}
