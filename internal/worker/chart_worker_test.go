package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wellnesslog/internal/amqp"
	"wellnesslog/internal/analytics"
	"wellnesslog/internal/core"
	"wellnesslog/internal/entrylog"
	"wellnesslog/internal/kv/memory"
	applog "wellnesslog/internal/log"
)

func newTestWorker(t *testing.T) (*ChartWorker, *entrylog.Store) {
	t.Helper()
	store := entrylog.New(memory.New(), applog.Discard())
	return NewChartWorker(store, t.TempDir(), applog.Discard()), store
}

func readDashboard(t *testing.T, path string) analytics.Dashboard {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var dash analytics.Dashboard
	if err := json.Unmarshal(data, &dash); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return dash
}

func TestRenderAllWritesEveryPayload(t *testing.T) {
	w, _ := newTestWorker(t)
	if err := w.RenderAll(context.Background()); err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}

	for _, c := range core.Categories() {
		dash := readDashboard(t, w.DashboardPath(c))
		if dash.Count != 0 || len(dash.Tips) != 1 {
			t.Errorf("%s: want empty dashboard with the no-data tip, got %+v", c, dash)
		}
	}

	data, err := os.ReadFile(filepath.Join(w.dir, InsightsFile))
	if err != nil {
		t.Fatal(err)
	}
	var in analytics.Insights
	if err := json.Unmarshal(data, &in); err != nil {
		t.Fatal(err)
	}
	if in.Mood != analytics.InsightMoodNoData {
		t.Errorf("Mood insight = %q", in.Mood)
	}

	leftovers, _ := filepath.Glob(filepath.Join(w.dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestHandleEntryEventRendersCategory(t *testing.T) {
	ctx := context.Background()
	w, store := newTestWorker(t)

	entries := []core.Entry{
		core.MoodEntry{Date: "2025-03-10", Mood: core.MoodHappy, Triggers: []string{}},
		core.MoodEntry{Date: "2025-03-11", Mood: core.MoodTired, Triggers: []string{}},
	}
	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	event := amqp.NewEntryEvent(amqp.EventEntryAppended, "mood", 2)
	if err := w.HandleEntryEvent(ctx, event); err != nil {
		t.Fatalf("HandleEntryEvent() error = %v", err)
	}

	dash := readDashboard(t, w.DashboardPath(core.Mood))
	if dash.Count != 2 {
		t.Errorf("Count = %d, want 2", dash.Count)
	}
	want := []string{analytics.TipMoodTiredness, analytics.TipMoodReinforce}
	if diff := cmp.Diff(want, dash.Tips); diff != "" {
		t.Errorf("tips (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(w.DashboardPath(core.Focus)); !os.IsNotExist(err) {
		t.Errorf("focus dashboard should not be rendered for a mood event, stat err = %v", err)
	}
}

func TestHandleEntryEventIgnoresUnknownCategory(t *testing.T) {
	w, _ := newTestWorker(t)
	event := amqp.NewEntryEvent(amqp.EventEntryAppended, "diet", 1)
	if err := w.HandleEntryEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown category should be acknowledged, got %v", err)
	}
	if entries, _ := os.ReadDir(w.dir); len(entries) != 0 {
		t.Errorf("nothing should be written, found %d files", len(entries))
	}
}
