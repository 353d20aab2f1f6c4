package activity

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// WeekOrder lists weekdays Sunday first, the column order of a weekly profile.
var WeekOrder = [7]time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

// ProfileRow is the mean concurrency at one minute of the day, per weekday.
// Present marks the weekdays that had samples at that minute.
type ProfileRow struct {
	MinuteOfDay int
	Mean        [7]float64
	Present     [7]bool
}

// WeeklyProfile averages a concurrency series by (minute of day, weekday).
// Rows are ordered by minute of day; weekday columns follow WeekOrder.
func WeeklyProfile(s *Series) []ProfileRow {
	type cell struct {
		minute int
		day    time.Weekday
	}
	buckets := make(map[cell][]float64)
	for _, p := range s.Samples {
		ts := p.Timestamp
		c := cell{minute: ts.Hour()*60 + ts.Minute(), day: ts.Weekday()}
		buckets[c] = append(buckets[c], float64(p.Count))
	}

	rows := make(map[int]*ProfileRow)
	for c, xs := range buckets {
		row, ok := rows[c.minute]
		if !ok {
			row = &ProfileRow{MinuteOfDay: c.minute}
			rows[c.minute] = row
		}
		mean, err := stats.Mean(xs)
		if err != nil {
			continue
		}
		row.Mean[c.day] = mean
		row.Present[c.day] = true
	}

	out := make([]ProfileRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinuteOfDay < out[j].MinuteOfDay })
	return out
}
