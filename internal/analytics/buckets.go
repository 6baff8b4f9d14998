// Package analytics computes spending reports over a project's expenses.
package analytics

import (
	"fmt"
	"time"

	"renovo/internal/core"
)

// Granularity is the width of one trend bucket.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// GranularityFor maps a report grouping to its trend granularity. Category and
// type groupings still chart their trend per month.
func GranularityFor(g core.GroupBy) Granularity {
	switch g {
	case core.GroupByDay:
		return Day
	case core.GroupByWeek:
		return Week
	default:
		return Month
	}
}

// BucketStart returns the first day of the bucket containing t. Weeks start on Monday.
func BucketStart(t time.Time, g Granularity) time.Time {
	y, m, d := t.Date()
	switch g {
	case Day:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case Week:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}
}

// BucketKey is the canonical label of the bucket containing t:
// 2006-01-02 for days, ISO 2006-W01 for weeks, 2006-01 for months.
func BucketKey(t time.Time, g Granularity) string {
	switch g {
	case Day:
		return t.Format(core.DateLayout)
	case Week:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	default:
		return t.Format("2006-01")
	}
}

func next(start time.Time, g Granularity) time.Time {
	switch g {
	case Day:
		return start.AddDate(0, 0, 1)
	case Week:
		return start.AddDate(0, 0, 7)
	default:
		return start.AddDate(0, 1, 0)
	}
}

// Buckets lists the start of every bucket touching [from, to], in order.
func Buckets(from, to time.Time, g Granularity) []time.Time {
	end := BucketStart(to, g)
	var out []time.Time
	for b := BucketStart(from, g); !b.After(end); b = next(b, g) {
		out = append(out, b)
	}
	return out
}
