package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"wellnesslog/internal/amqp"
	"wellnesslog/internal/analytics"
	"wellnesslog/internal/core"
	"wellnesslog/internal/entrylog"
	"wellnesslog/internal/kv"
	"wellnesslog/internal/kv/memory"
	applog "wellnesslog/internal/log"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.EntryEvent
	err    error
}

func (p *recordingPublisher) PublishEntryEvent(_ context.Context, event *amqp.EntryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T, pub EventPublisher) *EntryService {
	t.Helper()
	store := entrylog.New(memory.New(), applog.Discard())
	svc := NewEntryService(store, pub, applog.Discard(), time.Minute)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC) }
	return svc
}

func focusForm(sleep, screen, exercise, rating string) core.RawFields {
	raw := core.RawFields{}
	raw.Set(core.FieldSleepHours, sleep)
	raw.Set(core.FieldScreenHours, screen)
	raw.Set(core.FieldExerciseMinutes, exercise)
	raw.Set(core.FieldRating, rating)
	return raw
}

func TestSubmitFocusScenario(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := svc.Submit(ctx, core.Focus, focusForm("8", "3", "25", "8"))
		if err != nil || !res.Accepted {
			t.Fatalf("submit %d: accepted=%v err=%v errors=%v", i, res.Accepted, err, res.Errors)
		}
	}
	dash, err := svc.Dashboard(ctx, core.Focus)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if diff := cmp.Diff([]string{analytics.TipSleepInRange}, dash.Tips); diff != "" {
		t.Fatalf("tips after three entries (-want +got):\n%s", diff)
	}

	res, err := svc.Submit(ctx, core.Focus, focusForm("5", "6", "10", "4"))
	if err != nil || !res.Accepted {
		t.Fatalf("fourth submit: %v %v", err, res.Errors)
	}
	if res.Dashboard == nil || res.Dashboard.Count != 4 {
		t.Fatalf("submit should return the updated dashboard, got %+v", res.Dashboard)
	}
	bars := res.Dashboard.Charts[2].Datasets[0].Values
	if diff := cmp.Diff([]float64{4, 0, 8, 0}, bars); diff != "" {
		t.Fatalf("bucket averages (-want +got):\n%s", diff)
	}
	if res.ResetForm {
		t.Error("focus submissions should not reset the mood form")
	}
	if got := len(pub.types()); got != 4 {
		t.Fatalf("published %d events, want 4", got)
	}
}

func TestSubmitRejectsInvalidWithoutSaving(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	res, err := svc.Submit(ctx, core.Focus, focusForm("25", "3", "abc", "8"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Accepted {
		t.Fatal("invalid form should not be accepted")
	}
	if diff := cmp.Diff([]string{core.FieldExerciseMinutes, core.FieldSleepHours}, res.Errors.Failed()); diff != "" {
		t.Fatalf("failed fields (-want +got):\n%s", diff)
	}
	entries, _ := svc.Entries(ctx, core.Focus)
	if len(entries) != 0 || len(pub.types()) != 0 {
		t.Fatalf("nothing should be saved or published, got %d entries", len(entries))
	}
}

func TestSubmitMoodResetsForm(t *testing.T) {
	svc := newTestService(t, nil)
	raw := core.RawFields{}
	raw.Set(core.FieldDate, "2025-03-10")
	raw.Set(core.FieldMood, "calm")
	raw.Set(core.FieldTriggers, "exams, sleep")

	res, err := svc.Submit(context.Background(), core.Mood, raw)
	if err != nil || !res.Accepted {
		t.Fatalf("Submit: %v %v", err, res.Errors)
	}
	if !res.ResetForm || res.Today != "2025-03-14" {
		t.Fatalf("mood submission should reset to today, got reset=%v today=%q", res.ResetForm, res.Today)
	}
}

func TestSubmitUnknownCategory(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Submit(context.Background(), core.Category("diet"), core.RawFields{})
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, core.Focus, focusForm("8", "3", "25", "8")); err != nil {
		t.Fatal(err)
	}

	cleared, err := svc.Clear(ctx, core.Focus, false)
	if err != nil || cleared {
		t.Fatalf("unconfirmed clear: cleared=%v err=%v", cleared, err)
	}
	if entries, _ := svc.Entries(ctx, core.Focus); len(entries) != 1 {
		t.Fatalf("unconfirmed clear removed entries: %d left", len(entries))
	}

	cleared, err = svc.Clear(ctx, core.Focus, true)
	if err != nil || !cleared {
		t.Fatalf("confirmed clear: cleared=%v err=%v", cleared, err)
	}
	dash, err := svc.Dashboard(ctx, core.Focus)
	if err != nil {
		t.Fatal(err)
	}
	if dash.Count != 0 || dash.Tips[0] != analytics.TipFocusNoData {
		t.Fatalf("dashboard should be recomputed after clear: %+v", dash)
	}
	want := []amqp.EventType{amqp.EventEntryAppended, amqp.EventCategoryCleared}
	if diff := cmp.Diff(want, pub.types()); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestInsightsAndDashboardsWithoutData(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	in, err := svc.Insights(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := analytics.Insights{
		SleepFocus: analytics.InsightSleepNoData,
		Skin:       analytics.InsightSkinNoData,
		Mood:       analytics.InsightMoodNoData,
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Fatalf("insights (-want +got):\n%s", diff)
	}

	dashes, err := svc.Dashboards(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range core.Categories() {
		if dashes[i].Category != c || len(dashes[i].Tips) != 1 {
			t.Errorf("dashboard %d: category=%s tips=%v", i, dashes[i].Category, dashes[i].Tips)
		}
	}
}

func TestInsightsRefreshAfterSubmit(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Insights(ctx); err != nil {
		t.Fatal(err)
	}
	raw := core.RawFields{}
	raw.Set(core.FieldSleepHours, "8")
	raw.Set(core.FieldWaterCups, "7")
	raw.Set(core.FieldStressLevel, "3")
	raw.Set(core.FieldCondition, "dry")
	if res, err := svc.Submit(ctx, core.Skin, raw); err != nil || !res.Accepted {
		t.Fatalf("Submit: %v %v", err, res.Errors)
	}

	in, err := svc.Insights(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if in.Skin != "Your most common skin condition is dry." {
		t.Fatalf("stale insight: %q", in.Skin)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestService(t, nil)
	ctx := context.Background()
	for _, form := range []core.RawFields{focusForm("8", "3", "25", "8"), focusForm("6", "5", "0", "5")} {
		if _, err := src.Submit(ctx, core.Focus, form); err != nil {
			t.Fatal(err)
		}
	}
	exported := src.Export(ctx)

	pub := &recordingPublisher{}
	dst := newTestService(t, pub)
	n, err := dst.Import(ctx, exported)
	if err != nil || n != 2 {
		t.Fatalf("Import: n=%d err=%v", n, err)
	}
	if diff := cmp.Diff(exported, dst.Export(ctx)); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]amqp.EventType{amqp.EventSnapshotImported}, pub.types()); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestImportKeepsMoodTriggersAsExported(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	snap := core.Snapshot{
		Mood: []core.MoodEntry{{Date: "2025-03-10", Mood: core.MoodStressed, Triggers: []string{"exams", "exams", "deadlines"}}},
	}

	if n, err := svc.Import(ctx, snap); err != nil || n != 1 {
		t.Fatalf("Import: n=%d err=%v", n, err)
	}
	if diff := cmp.Diff(snap.Mood, svc.Export(ctx).Mood); diff != "" {
		t.Fatalf("mood round trip (-want +got):\n%s", diff)
	}

	bad := core.Snapshot{
		Mood: []core.MoodEntry{{Date: "2025-03-11", Mood: core.MoodCalm, Triggers: []string{"exams, deadlines"}}},
	}
	if _, err := svc.Import(ctx, bad); !errors.Is(err, ErrInvalidImport) {
		t.Fatalf("Import with comma trigger: err=%v, want ErrInvalidImport", err)
	}
	if got := len(svc.Export(ctx).Mood); got != 1 {
		t.Fatalf("mood entries after rejected import = %d, want 1", got)
	}
}

func TestPublishFailureDoesNotFailSubmit(t *testing.T) {
	svc := newTestService(t, &recordingPublisher{err: amqp.ErrCircuitOpen})
	res, err := svc.Submit(context.Background(), core.Focus, focusForm("8", "3", "25", "8"))
	if err != nil || !res.Accepted {
		t.Fatalf("publish errors must not fail a saved submission: %v", err)
	}
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	snap := core.Snapshot{
		Focus: []core.FocusEntry{
			{Date: "2025-03-14", SleepHours: 8, ScreenHours: 3, ExerciseMinutes: 25, Rating: 8},
			{Date: "2025-03-15", SleepHours: 30, ScreenHours: 3, ExerciseMinutes: 25, Rating: 8},
		},
	}

	n, err := svc.Import(ctx, snap)
	if !errors.Is(err, ErrInvalidImport) || n != 0 {
		t.Fatalf("Import: n=%d err=%v, want ErrInvalidImport", n, err)
	}
	if entries, _ := svc.Entries(ctx, core.Focus); len(entries) != 0 {
		t.Fatalf("nothing should be imported, got %d entries", len(entries))
	}
}

// gatedKV parks the next Get after it has read the backend, until release
// is closed.
type gatedKV struct {
	kv.Store
	armed   atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func newGatedKV(backend kv.Store) *gatedKV {
	g := &gatedKV{Store: backend, reached: make(chan struct{}), release: make(chan struct{})}
	g.armed.Store(true)
	return g
}

func (g *gatedKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := g.Store.Get(ctx, key)
	if g.armed.CompareAndSwap(true, false) {
		close(g.reached)
		<-g.release
	}
	return data, err
}

func TestDashboardNotStaleAfterConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	gate := newGatedKV(memory.New())
	svc := NewEntryService(entrylog.New(gate, applog.Discard()), nil, applog.Discard(), time.Hour)

	slow := make(chan analytics.Dashboard)
	go func() {
		dash, _ := svc.Dashboard(ctx, core.Focus)
		slow <- dash
	}()
	<-gate.reached

	if res, err := svc.Submit(ctx, core.Focus, focusForm("8", "3", "25", "8")); err != nil || !res.Accepted {
		t.Fatalf("Submit: %v %v", err, res.Errors)
	}
	close(gate.release)
	if dash := <-slow; dash.Count != 0 {
		t.Fatalf("read started before the write should see the old log, got count=%d", dash.Count)
	}

	dash, err := svc.Dashboard(ctx, core.Focus)
	if err != nil {
		t.Fatal(err)
	}
	if dash.Count != 1 {
		t.Fatalf("dashboard is stale: count=%d, want 1 (tips %v)", dash.Count, dash.Tips)
	}
}

func TestViewsFollowWritesFromAnotherService(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	server := NewEntryService(entrylog.New(backend, applog.Discard()), nil, applog.Discard(), time.Hour)
	other := NewEntryService(entrylog.New(backend, applog.Discard()), nil, applog.Discard(), time.Hour)

	if dash, err := server.Dashboard(ctx, core.Focus); err != nil || dash.Count != 0 {
		t.Fatalf("initial dashboard: count=%d err=%v", dash.Count, err)
	}
	if in, err := server.Insights(ctx); err != nil || in.SleepFocus != analytics.InsightSleepNoData {
		t.Fatalf("initial insights: %q err=%v", in.SleepFocus, err)
	}

	for i := 0; i < 3; i++ {
		if res, err := other.Submit(ctx, core.Focus, focusForm("8", "3", "25", "8")); err != nil || !res.Accepted {
			t.Fatalf("Submit: %v %v", err, res.Errors)
		}
	}

	dash, err := server.Dashboard(ctx, core.Focus)
	if err != nil {
		t.Fatal(err)
	}
	if dash.Count != 3 {
		t.Fatalf("dashboard count=%d, want 3", dash.Count)
	}
	in, err := server.Insights(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if in.SleepFocus != "On nights with 7–9 hours of sleep your average focus rating is 8.0." {
		t.Fatalf("insights not refreshed: %q", in.SleepFocus)
	}

	if _, err := other.Clear(ctx, core.Focus, true); err != nil {
		t.Fatal(err)
	}
	if dash, _ := server.Dashboard(ctx, core.Focus); dash.Count != 0 {
		t.Fatalf("dashboard after clear: count=%d, want 0", dash.Count)
	}
}
