// Package analytics turns entry logs into chart series, summary insights and
// advisory tips. Every function is pure and recomputes from the full log.
package analytics

import (
	"time"

	"wellnesslog/internal/core"
)

// Point is one (x, y) pair of a scatter series.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bucket is a sleep-duration range with the mean focus rating of its entries.
// Lower is exclusive and Upper inclusive; infinite bounds are reported as nil.
type Bucket struct {
	Label   string   `json:"label"`
	Lower   *float64 `json:"lower"`
	Upper   *float64 `json:"upper"`
	Count   int      `json:"count"`
	Average float64  `json:"average"`
}

// WeekdayRow counts one mood's entries per weekday, Monday first.
type WeekdayRow struct {
	Mood   core.MoodKind `json:"mood"`
	Counts [7]int        `json:"counts"`
}

// ConditionCounts is the number of skin entries per known condition.
type ConditionCounts struct {
	Clear     int `json:"clear"`
	Dry       int `json:"dry"`
	Irritated int `json:"irritated"`
}

// Bucket labels, in order.
const (
	BucketUpTo6   = "≤6h"
	Bucket6To7    = "6–7h"
	Bucket7To9    = "7–9h"
	BucketOver9   = ">9h"
	idealBucket   = 2
	weekdayLength = 7
)

// WeekdayLabels are the histogram columns, Monday first.
var WeekdayLabels = [weekdayLength]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var bucketBounds = [4]struct {
	label        string
	lower, upper *float64
}{
	{BucketUpTo6, nil, ptr(6)},
	{Bucket6To7, ptr(6), ptr(7)},
	{Bucket7To9, ptr(7), ptr(9)},
	{BucketOver9, ptr(9), nil},
}

func ptr(v float64) *float64 { return &v }

// FocusScatter returns (sleepHours, rating) and (screenHours, rating) pairs in log order.
func FocusScatter(entries []core.FocusEntry) (sleep, screen []Point) {
	sleep = make([]Point, 0, len(entries))
	screen = make([]Point, 0, len(entries))
	for _, e := range entries {
		sleep = append(sleep, Point{X: e.SleepHours, Y: float64(e.Rating)})
		screen = append(screen, Point{X: e.ScreenHours, Y: float64(e.Rating)})
	}
	return sleep, screen
}

// ConditionScore maps a skin condition to an ordinal: clear 3, dry 2,
// irritated 1, anything else 0.
func ConditionScore(c core.Condition) int {
	switch c {
	case core.ConditionClear:
		return 3
	case core.ConditionDry:
		return 2
	case core.ConditionIrritated:
		return 1
	default:
		return 0
	}
}

// SkinScatter returns (waterCups, score) and (stressLevel, score) pairs in log order.
func SkinScatter(entries []core.SkinEntry) (water, stress []Point) {
	water = make([]Point, 0, len(entries))
	stress = make([]Point, 0, len(entries))
	for _, e := range entries {
		score := float64(ConditionScore(e.Condition))
		water = append(water, Point{X: e.WaterCups, Y: score})
		stress = append(stress, Point{X: float64(e.StressLevel), Y: score})
	}
	return water, stress
}

// MondayIndex converts Go's Sunday-first weekday to a Monday-first index:
// Monday 0 through Sunday 6.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// MoodWeekdayHistogram counts mood entries per weekday, one row per known
// mood. Unknown moods and unparseable dates are skipped.
func MoodWeekdayHistogram(entries []core.MoodEntry) []WeekdayRow {
	moods := core.Moods()
	rows := make([]WeekdayRow, len(moods))
	index := make(map[core.MoodKind]int, len(moods))
	for i, m := range moods {
		rows[i].Mood = m
		index[m] = i
	}
	for _, e := range entries {
		row, ok := index[e.Mood]
		if !ok {
			continue
		}
		day, err := core.ParseDate(e.Date)
		if err != nil {
			continue
		}
		rows[row].Counts[MondayIndex(day.Weekday())]++
	}
	return rows
}

// bucketIndex places hours in (-inf,6], (6,7], (7,9] or (9,inf).
func bucketIndex(hours float64) int {
	switch {
	case hours <= 6:
		return 0
	case hours <= 7:
		return 1
	case hours <= 9:
		return 2
	default:
		return 3
	}
}

// SleepBuckets averages focus ratings per sleep bucket. An empty bucket
// reports an average of 0.
func SleepBuckets(entries []core.FocusEntry) [4]Bucket {
	var (
		out  [4]Bucket
		sums [4]float64
	)
	for i, b := range bucketBounds {
		out[i] = Bucket{Label: b.label, Lower: b.lower, Upper: b.upper}
	}
	for _, e := range entries {
		i := bucketIndex(e.SleepHours)
		out[i].Count++
		sums[i] += float64(e.Rating)
	}
	for i := range out {
		if out[i].Count > 0 {
			out[i].Average = sums[i] / float64(out[i].Count)
		}
	}
	return out
}

// ConditionDistribution counts skin entries per known condition.
func ConditionDistribution(entries []core.SkinEntry) ConditionCounts {
	var out ConditionCounts
	for _, e := range entries {
		switch e.Condition {
		case core.ConditionClear:
			out.Clear++
		case core.ConditionDry:
			out.Dry++
		case core.ConditionIrritated:
			out.Irritated++
		}
	}
	return out
}

// Get returns the count for c, 0 for unknown conditions.
func (cc ConditionCounts) Get(c core.Condition) int {
	switch c {
	case core.ConditionClear:
		return cc.Clear
	case core.ConditionDry:
		return cc.Dry
	case core.ConditionIrritated:
		return cc.Irritated
	default:
		return 0
	}
}

// MoodCounts counts entries per mood value, unknown values included.
// Keys are returned in first-encountered order.
func MoodCounts(entries []core.MoodEntry) (keys []core.MoodKind, counts map[core.MoodKind]int) {
	counts = map[core.MoodKind]int{}
	for _, e := range entries {
		if _, seen := counts[e.Mood]; !seen {
			keys = append(keys, e.Mood)
		}
		counts[e.Mood]++
	}
	return keys, counts
}

type focusAverages struct {
	sleep, screen, exercise, rating float64
}

func averageFocus(entries []core.FocusEntry) focusAverages {
	var a focusAverages
	if len(entries) == 0 {
		return a
	}
	for _, e := range entries {
		a.sleep += e.SleepHours
		a.screen += e.ScreenHours
		a.exercise += e.ExerciseMinutes
		a.rating += float64(e.Rating)
	}
	n := float64(len(entries))
	a.sleep /= n
	a.screen /= n
	a.exercise /= n
	a.rating /= n
	return a
}

type skinAverages struct {
	water, stress float64
}

func averageSkin(entries []core.SkinEntry) skinAverages {
	var a skinAverages
	if len(entries) == 0 {
		return a
	}
	for _, e := range entries {
		a.water += e.WaterCups
		a.stress += float64(e.StressLevel)
	}
	n := float64(len(entries))
	a.water /= n
	a.stress /= n
	return a
}
