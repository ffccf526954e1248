package analytics

import (
	"wellnesslog/internal/core"
)

// ChartKind tells the rendering collaborator how to draw a chart.
type ChartKind string

const (
	KindScatter    ChartKind = "scatter"
	KindBar        ChartKind = "bar"
	KindStackedBar ChartKind = "stackedBar"
	KindDoughnut   ChartKind = "doughnut"
)

// Chart IDs are stable so renderers can keep one handle per chart.
const (
	ChartFocusSleep     = "focus-sleep-rating"
	ChartFocusScreen    = "focus-screen-rating"
	ChartFocusBuckets   = "focus-sleep-buckets"
	ChartSkinWater      = "skin-water-condition"
	ChartSkinStress     = "skin-stress-condition"
	ChartSkinConditions = "skin-conditions"
	ChartMoodWeekdays   = "mood-weekdays"
)

// Dataset is one series. Scatter charts fill Points; label/value charts fill
// Values, aligned with Chart.Labels.
type Dataset struct {
	Label  string    `json:"label"`
	Points []Point   `json:"points,omitempty"`
	Values []float64 `json:"values,omitempty"`
}

// Chart is a declarative chart payload.
type Chart struct {
	ID       string    `json:"id"`
	Kind     ChartKind `json:"kind"`
	Title    string    `json:"title"`
	XLabel   string    `json:"xLabel,omitempty"`
	YLabel   string    `json:"yLabel,omitempty"`
	Labels   []string  `json:"labels,omitempty"`
	Datasets []Dataset `json:"datasets"`
}

// Dashboard bundles a category's charts and tips.
type Dashboard struct {
	Category core.Category `json:"category"`
	Count    int           `json:"count"`
	Charts   []Chart       `json:"charts"`
	Tips     []string      `json:"tips"`
}

// BuildDashboard computes the dashboard for one category of a snapshot.
func BuildDashboard(c core.Category, snap core.Snapshot) (Dashboard, error) {
	switch c {
	case core.Focus:
		return Dashboard{Category: c, Count: len(snap.Focus), Charts: FocusCharts(snap.Focus), Tips: FocusTips(snap.Focus)}, nil
	case core.Skin:
		return Dashboard{Category: c, Count: len(snap.Skin), Charts: SkinCharts(snap.Skin), Tips: SkinTips(snap.Skin)}, nil
	case core.Mood:
		return Dashboard{Category: c, Count: len(snap.Mood), Charts: MoodCharts(snap.Mood), Tips: MoodTips(snap.Mood)}, nil
	default:
		return Dashboard{}, core.ErrUnknownCategory
	}
}

// FocusCharts returns the two focus scatters and the sleep-bucket bar.
func FocusCharts(entries []core.FocusEntry) []Chart {
	sleep, screen := FocusScatter(entries)
	buckets := SleepBuckets(entries)
	labels := make([]string, len(buckets))
	averages := make([]float64, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
		averages[i] = b.Average
	}
	return []Chart{
		{
			ID: ChartFocusSleep, Kind: KindScatter, Title: "Sleep vs focus",
			XLabel: "Sleep (hours)", YLabel: "Focus rating",
			Datasets: []Dataset{{Label: "Entries", Points: sleep}},
		},
		{
			ID: ChartFocusScreen, Kind: KindScatter, Title: "Screen time vs focus",
			XLabel: "Screen time (hours)", YLabel: "Focus rating",
			Datasets: []Dataset{{Label: "Entries", Points: screen}},
		},
		{
			ID: ChartFocusBuckets, Kind: KindBar, Title: "Average focus by sleep",
			XLabel: "Sleep", YLabel: "Average rating",
			Labels:   labels,
			Datasets: []Dataset{{Label: "Average rating", Values: averages}},
		},
	}
}

// SkinCharts returns the water and stress scatters and the condition doughnut.
func SkinCharts(entries []core.SkinEntry) []Chart {
	water, stress := SkinScatter(entries)
	dist := ConditionDistribution(entries)
	conditions := core.Conditions()
	labels := make([]string, len(conditions))
	counts := make([]float64, len(conditions))
	for i, c := range conditions {
		labels[i] = string(c)
		counts[i] = float64(dist.Get(c))
	}
	return []Chart{
		{
			ID: ChartSkinWater, Kind: KindScatter, Title: "Water vs skin condition",
			XLabel: "Water (cups)", YLabel: "Condition score",
			Datasets: []Dataset{{Label: "Entries", Points: water}},
		},
		{
			ID: ChartSkinStress, Kind: KindScatter, Title: "Stress vs skin condition",
			XLabel: "Stress level", YLabel: "Condition score",
			Datasets: []Dataset{{Label: "Entries", Points: stress}},
		},
		{
			ID: ChartSkinConditions, Kind: KindDoughnut, Title: "Skin conditions",
			Labels:   labels,
			Datasets: []Dataset{{Label: "Days", Values: counts}},
		},
	}
}

// MoodCharts returns the weekday histogram as a stacked bar, one dataset per mood.
func MoodCharts(entries []core.MoodEntry) []Chart {
	rows := MoodWeekdayHistogram(entries)
	datasets := make([]Dataset, 0, len(rows))
	for _, row := range rows {
		values := make([]float64, len(row.Counts))
		for i, n := range row.Counts {
			values[i] = float64(n)
		}
		datasets = append(datasets, Dataset{Label: string(row.Mood), Values: values})
	}
	return []Chart{
		{
			ID: ChartMoodWeekdays, Kind: KindStackedBar, Title: "Mood by weekday",
			XLabel: "Weekday", YLabel: "Entries",
			Labels:   WeekdayLabels[:],
			Datasets: datasets,
		},
	}
}
