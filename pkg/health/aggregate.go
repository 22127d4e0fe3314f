package health

import (
	"sort"
	"time"

	"github.com/vjranagit/healthdash/pkg/types"
)

// DateOf returns midnight of the sample's calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type dayBucket struct {
	sum   float64
	count int
}

// Daily groups samples by calendar date and reduces each group.
// The result has one entry per distinct date, ascending; an empty input
// yields an empty, non-nil slice.
func Daily(samples []types.Sample, reduction types.Reduction) []types.DailyAggregate {
	buckets := make(map[int64]*dayBucket)
	for _, s := range samples {
		key := DateOf(s.Timestamp).Unix()
		b, ok := buckets[key]
		if !ok {
			b = &dayBucket{}
			buckets[key] = b
		}
		b.sum += s.Value
		b.count++
	}

	days := make([]int64, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	out := make([]types.DailyAggregate, 0, len(days))
	for _, day := range days {
		b := buckets[day]
		value := b.sum
		if reduction == types.Mean {
			value = b.sum / float64(b.count)
		}
		out = append(out, types.DailyAggregate{
			Date:  time.Unix(day, 0).UTC(),
			Value: value,
		})
	}

	return out
}
