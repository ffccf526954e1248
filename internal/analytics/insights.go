package analytics

import (
	"fmt"

	"wellnesslog/internal/core"
)

// Insight messages without a computed value.
const (
	InsightSleepNoData = "No focus data yet."
	InsightSleepMore   = "Log at least 3 focus entries, including a night of 7–9 hours, to see how sleep affects your focus."
	InsightSkinNoData  = "No skin data yet."
	InsightMoodNoData  = "No mood data yet."
	minSleepInsight    = 3
)

// Insights is the three-sentence cross-category summary.
type Insights struct {
	SleepFocus string `json:"sleepFocus"`
	Skin       string `json:"skin"`
	Mood       string `json:"mood"`
}

// Summarize builds all three insight sentences from a snapshot.
func Summarize(snap core.Snapshot) Insights {
	return Insights{
		SleepFocus: SleepFocusInsight(snap.Focus),
		Skin:       SkinInsight(snap.Skin),
		Mood:       MoodInsight(snap.Mood),
	}
}

// SleepFocusInsight reports the mean focus rating on 7–9h nights once there
// is enough data.
func SleepFocusInsight(entries []core.FocusEntry) string {
	buckets := SleepBuckets(entries)
	ideal := buckets[idealBucket]
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	switch {
	case ideal.Count >= 1 && total >= minSleepInsight:
		return fmt.Sprintf("On nights with 7–9 hours of sleep your average focus rating is %.1f.", ideal.Average)
	case total > 0:
		return InsightSleepMore
	default:
		return InsightSleepNoData
	}
}

// MostCommonCondition returns the condition with the highest count, ties
// going to the earlier of clear, dry, irritated. ok is false without entries.
func MostCommonCondition(entries []core.SkinEntry) (core.Condition, bool) {
	if len(entries) == 0 {
		return "", false
	}
	dist := ConditionDistribution(entries)
	var (
		best  core.Condition
		count = -1
	)
	for _, c := range core.Conditions() {
		if n := dist.Get(c); n > count {
			best, count = c, n
		}
	}
	return best, true
}

// SkinInsight names the most common skin condition.
func SkinInsight(entries []core.SkinEntry) string {
	c, ok := MostCommonCondition(entries)
	if !ok {
		return InsightSkinNoData
	}
	return fmt.Sprintf("Your most common skin condition is %s.", c)
}

// MostCommonMood returns the most frequent mood value, ties going to the one
// seen first in the log. ok is false without entries.
func MostCommonMood(entries []core.MoodEntry) (core.MoodKind, bool) {
	keys, counts := MoodCounts(entries)
	if len(keys) == 0 {
		return "", false
	}
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}

// MoodInsight names the most frequent mood.
func MoodInsight(entries []core.MoodEntry) string {
	m, ok := MostCommonMood(entries)
	if !ok {
		return InsightMoodNoData
	}
	return fmt.Sprintf("Your most frequent mood is %s.", m)
}
