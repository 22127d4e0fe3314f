package health

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/healthdash/pkg/types"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

func TestDailySum(t *testing.T) {
	samples := []types.Sample{
		{Timestamp: at(2024, 1, 1, 8, 0), Value: 100},
		{Timestamp: at(2024, 1, 1, 20, 0), Value: 50},
		{Timestamp: at(2024, 1, 2, 9, 0), Value: 200},
	}

	got := Daily(samples, types.Sum)

	assert.Equal(t, []types.DailyAggregate{
		{Date: day(2024, 1, 1), Value: 150},
		{Date: day(2024, 1, 2), Value: 200},
	}, got)
}

func TestDailyMean(t *testing.T) {
	samples := []types.Sample{
		{Timestamp: at(2024, 1, 1, 8, 0), Value: 60},
		{Timestamp: at(2024, 1, 1, 12, 0), Value: 70},
		{Timestamp: at(2024, 1, 1, 23, 59), Value: 80},
	}

	got := Daily(samples, types.Mean)

	require.Len(t, got, 1)
	assert.Equal(t, day(2024, 1, 1), got[0].Date)
	assert.Equal(t, 70.0, got[0].Value)
}

func TestDailySortsDates(t *testing.T) {
	samples := []types.Sample{
		{Timestamp: at(2024, 3, 1, 8, 0), Value: 1},
		{Timestamp: at(2023, 12, 31, 23, 0), Value: 2},
		{Timestamp: at(2024, 2, 29, 0, 0), Value: 3},
		{Timestamp: at(2024, 3, 1, 0, 0), Value: 4},
	}

	got := Daily(samples, types.Sum)

	assert.Equal(t, []types.DailyAggregate{
		{Date: day(2023, 12, 31), Value: 2},
		{Date: day(2024, 2, 29), Value: 3},
		{Date: day(2024, 3, 1), Value: 5},
	}, got)
}

func TestDailyEmpty(t *testing.T) {
	for _, r := range []types.Reduction{types.Sum, types.Mean} {
		got := Daily(nil, r)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestDailyDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := make([]types.Sample, 500)
	for i := range samples {
		samples[i] = types.Sample{
			Timestamp: at(2024, 1, 1+rng.Intn(60), rng.Intn(24), rng.Intn(60)),
			Value:     float64(rng.Intn(1000)),
		}
	}

	first := Daily(samples, types.Mean)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Daily(samples, types.Mean))
	}

	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Date.Before(first[i].Date), "dates must ascend")
	}
}

func TestDailyMatchesDirectReduction(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := make([]types.Sample, 300)
	sums := map[time.Time]float64{}
	counts := map[time.Time]int{}
	for i := range samples {
		ts := at(2024, 6, 1+rng.Intn(10), rng.Intn(24), rng.Intn(60))
		v := float64(rng.Intn(200))
		samples[i] = types.Sample{Timestamp: ts, Value: v}
		sums[DateOf(ts)] += v
		counts[DateOf(ts)]++
	}

	for _, row := range Daily(samples, types.Sum) {
		assert.Equal(t, sums[row.Date], row.Value)
	}
	for _, row := range Daily(samples, types.Mean) {
		assert.InDelta(t, sums[row.Date]/float64(counts[row.Date]), row.Value, 1e-9)
	}
	assert.Len(t, Daily(samples, types.Sum), len(sums))
}

func TestDailyIdempotent(t *testing.T) {
	samples := []types.Sample{
		{Timestamp: at(2024, 1, 1, 8, 0), Value: 60},
		{Timestamp: at(2024, 1, 1, 9, 0), Value: 90},
		{Timestamp: at(2024, 1, 3, 9, 0), Value: 75},
	}

	for _, r := range []types.Reduction{types.Sum, types.Mean} {
		once := Daily(samples, r)

		again := make([]types.Sample, len(once))
		for i, row := range once {
			again[i] = types.Sample{Timestamp: row.Date, Value: row.Value}
		}

		assert.Equal(t, once, Daily(again, r), "reduction %s", r)
	}
}

func TestDateOf(t *testing.T) {
	assert.Equal(t, day(2024, 1, 1), DateOf(time.Date(2024, 1, 1, 23, 59, 59, 999, time.UTC)))
	assert.Equal(t, day(2024, 1, 1), DateOf(day(2024, 1, 1)))
}
