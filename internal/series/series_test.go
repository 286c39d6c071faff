package series_test

import (
	"math/rand"
	"testing"
	"time"

	"codeberg.org/mutker/nepcollector/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t0Millis = int64(1700000000000)

var t0 = time.UnixMilli(t0Millis)

func val(v int64) *int64 { return &v }

func TestNormalize(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, series.Normalize(nil))
	})

	t.Run("SameSecondMaxAndNullAsZero", func(t *testing.T) {
		samples := []series.RawSample{
			{EpochMillis: t0Millis, Value: val(5)},
			{EpochMillis: t0Millis + 400, Value: val(9)},
			{EpochMillis: t0Millis + 60000, Value: nil},
		}

		points := series.Normalize(samples)
		require.Len(t, points, 2)
		assert.True(t, points[0].Timestamp.Equal(t0))
		assert.Equal(t, int64(9), points[0].Watt)
		assert.True(t, points[1].Timestamp.Equal(t0.Add(time.Minute)))
		assert.Equal(t, int64(0), points[1].Watt)
	})

	t.Run("TruncatesInsteadOfRounding", func(t *testing.T) {
		points := series.Normalize([]series.RawSample{
			{EpochMillis: t0Millis + 999, Value: val(3)},
		})
		require.Len(t, points, 1)
		assert.True(t, points[0].Timestamp.Equal(t0))
	})

	t.Run("NegativeClampedToZero", func(t *testing.T) {
		points := series.Normalize([]series.RawSample{
			{EpochMillis: t0Millis, Value: val(-4)},
		})
		require.Len(t, points, 1)
		assert.Equal(t, int64(0), points[0].Watt)
	})

	t.Run("NullDoesNotLowerMax", func(t *testing.T) {
		points := series.Normalize([]series.RawSample{
			{EpochMillis: t0Millis, Value: val(12)},
			{EpochMillis: t0Millis + 10, Value: nil},
		})
		require.Len(t, points, 1)
		assert.Equal(t, int64(12), points[0].Watt)
	})
}

func TestNormalizeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for run := 0; run < 50; run++ {
		samples := make([]series.RawSample, rng.Intn(200))
		want := map[int64]int64{}
		for i := range samples {
			ms := t0Millis + rng.Int63n(30_000)
			s := series.RawSample{EpochMillis: ms}
			var w int64
			if rng.Intn(5) > 0 {
				w = rng.Int63n(5000)
				s.Value = val(w)
			}
			samples[i] = s

			sec := ms / 1000
			if cur, ok := want[sec]; !ok || w > cur {
				want[sec] = w
			}
		}

		points := series.Normalize(samples)
		seen := map[int64]bool{}
		for _, p := range points {
			sec := p.Timestamp.Unix()
			assert.False(t, seen[sec], "duplicate timestamp %d", sec)
			seen[sec] = true
			assert.Equal(t, want[sec], p.Watt)
		}
		assert.Len(t, points, len(want))
	}
}

func TestReconcile(t *testing.T) {
	t1 := t0.Add(time.Minute)

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, series.Reconcile(nil))
		assert.Empty(t, series.Reconcile([]series.Point{}))
	})

	t.Run("DropsTrailingZero", func(t *testing.T) {
		points := []series.Point{
			{Timestamp: t0, Watt: 0},
			{Timestamp: t1, Watt: 0},
			{Timestamp: t1, Watt: 7},
		}

		assert.Equal(t, []series.Point{
			{Timestamp: t0, Watt: 0},
			{Timestamp: t1, Watt: 7},
		}, series.Reconcile(points))
	})

	t.Run("OnlyZeroAtLast", func(t *testing.T) {
		points := []series.Point{
			{Timestamp: t0, Watt: 3},
			{Timestamp: t1, Watt: 0},
			{Timestamp: t1, Watt: 0},
		}
		assert.Equal(t, points, series.Reconcile(points))
	})

	t.Run("OnlyPositiveAtLast", func(t *testing.T) {
		points := []series.Point{
			{Timestamp: t0, Watt: 0},
			{Timestamp: t1, Watt: 4},
			{Timestamp: t1, Watt: 5},
		}
		assert.Equal(t, points, series.Reconcile(points))
	})

	t.Run("EarlierMixedGroupUntouched", func(t *testing.T) {
		points := []series.Point{
			{Timestamp: t0, Watt: 0},
			{Timestamp: t0, Watt: 8},
			{Timestamp: t1, Watt: 2},
		}
		assert.Equal(t, points, series.Reconcile(points))
	})

	t.Run("UnorderedInput", func(t *testing.T) {
		points := []series.Point{
			{Timestamp: t1, Watt: 0},
			{Timestamp: t0, Watt: 0},
			{Timestamp: t1, Watt: 6},
		}
		assert.Equal(t, []series.Point{
			{Timestamp: t0, Watt: 0},
			{Timestamp: t1, Watt: 6},
		}, series.Reconcile(points))
	})

	t.Run("SeveralPointsAtLast", func(t *testing.T) {
		points := []series.Point{
			{Timestamp: t1, Watt: 5},
			{Timestamp: t1, Watt: 0},
			{Timestamp: t1, Watt: 9},
			{Timestamp: t1, Watt: 0},
		}
		assert.Equal(t, []series.Point{
			{Timestamp: t1, Watt: 5},
			{Timestamp: t1, Watt: 9},
		}, series.Reconcile(points))
	})
}

func TestSort(t *testing.T) {
	t1 := t0.Add(time.Second)
	t2 := t0.Add(2 * time.Second)
	points := []series.Point{
		{Timestamp: t2, Watt: 1},
		{Timestamp: t0, Watt: 2},
		{Timestamp: t1, Watt: 3},
	}

	sorted := series.Sort(points)
	assert.Equal(t, []series.Point{
		{Timestamp: t0, Watt: 2},
		{Timestamp: t1, Watt: 3},
		{Timestamp: t2, Watt: 1},
	}, sorted)
	assert.Equal(t, t2, points[0].Timestamp, "input must not be reordered")
}
