package collector

import (
	"time"

	"HKQuant/internal/model"
)

// AggregateDailyToWeekly folds daily bars into ISO-week bars. Each weekly bar
// opens at the first day's open, closes at the last day's close and carries
// the week's extreme high/low and summed volume. Weekly bars are stamped
// with the week's Monday. Input must be time-ordered.
func AggregateDailyToWeekly(daily []model.OHLCV) []model.OHLCV {
	var weekly []model.OHLCV
	var curYear, curWeek int
	for _, d := range daily {
		y, w := d.Time.ISOWeek()
		if len(weekly) == 0 || y != curYear || w != curWeek {
			d.Time = weekStart(d.Time)
			weekly = append(weekly, d)
			curYear, curWeek = y, w
			continue
		}
		last := &weekly[len(weekly)-1]
		if d.High > last.High {
			last.High = d.High
		}
		if d.Low < last.Low {
			last.Low = d.Low
		}
		last.Close = d.Close
		last.Volume += d.Volume
	}
	return weekly
}

// weekStart returns the Monday of t's week at midnight UTC.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}
