package entrylog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wellnesslog/internal/core"
	"wellnesslog/internal/kv"
	"wellnesslog/internal/kv/memory"
	applog "wellnesslog/internal/log"
)

func newTestStore(t *testing.T) (*Store, *memory.Store) {
	t.Helper()
	backend := memory.New()
	return New(backend, applog.Discard()), backend
}

func focus(date string, sleep, screen, exercise float64, rating int) core.FocusEntry {
	return core.FocusEntry{Date: date, SleepHours: sleep, ScreenHours: screen, ExerciseMinutes: exercise, Rating: rating}
}

func TestReadAllEmptyWhenNothingStored(t *testing.T) {
	s, _ := newTestStore(t)
	for _, c := range core.Categories() {
		if got := s.ReadAll(context.Background(), c); len(got) != 0 {
			t.Fatalf("%s: expected empty log, got %v", c, got)
		}
	}
}

func TestAppendIsOrderPreservingAndAllowsDuplicates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	entries := []core.Entry{
		focus("2025-01-01", 8, 3, 25, 8),
		focus("2025-01-02", 6, 5, 10, 5),
		focus("2025-01-02", 6, 5, 10, 5),
	}
	for i, e := range entries {
		before := s.ReadAll(ctx, core.Focus)
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		after := s.ReadAll(ctx, core.Focus)
		if len(after) != len(before)+1 {
			t.Fatalf("append %d: length %d -> %d", i, len(before), len(after))
		}
		if diff := cmp.Diff(before, after[:len(before)]); diff != "" {
			t.Fatalf("append %d changed prior entries (-before +after):\n%s", i, diff)
		}
		if diff := cmp.Diff(e, after[len(after)-1]); diff != "" {
			t.Fatalf("append %d last entry mismatch (-want +got):\n%s", i, diff)
		}
	}

	if got := s.ReadAll(ctx, core.Skin); len(got) != 0 {
		t.Fatalf("categories must be independent, skin has %v", got)
	}
}

func TestClearEmptiesOnlyThatCategory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_ = s.Append(ctx, focus("2025-01-01", 8, 3, 25, 8))
	_ = s.Append(ctx, core.MoodEntry{Date: "2025-01-01", Mood: core.MoodHappy, Triggers: []string{}})

	if err := s.Clear(ctx, core.Focus); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := s.ReadAll(ctx, core.Focus); len(got) != 0 {
		t.Fatalf("expected empty focus log, got %v", got)
	}
	if got := s.ReadAll(ctx, core.Mood); len(got) != 1 {
		t.Fatalf("mood log should survive, got %v", got)
	}
	if err := s.Clear(ctx, core.Focus); err != nil {
		t.Fatalf("clearing an empty category should succeed: %v", err)
	}
}

func TestCorruptLogReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	if err := backend.Put(ctx, core.Skin.StorageKey(), []byte(`{not json`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := s.ReadAll(ctx, core.Skin); len(got) != 0 {
		t.Fatalf("expected empty log on corrupt data, got %v", got)
	}

	// appending over corrupt data starts a fresh log
	e := core.SkinEntry{Date: "2025-01-01", SleepHours: 7, WaterCups: 6, StressLevel: 3, Condition: core.ConditionClear}
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("append: %v", err)
	}
	if diff := cmp.Diff([]core.Entry{e}, s.ReadAll(ctx, core.Skin)); diff != "" {
		t.Fatalf("log mismatch (-want +got):\n%s", diff)
	}
}

type failingKV struct{ getErr, putErr error }

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f failingKV) Put(context.Context, string, []byte) error   { return f.putErr }
func (f failingKV) Delete(context.Context, string) error        { return f.putErr }

var _ kv.Store = failingKV{}

func TestBackendReadFailureReadsAsEmpty(t *testing.T) {
	s := New(failingKV{getErr: errors.New("io error")}, applog.Discard())
	if got := s.ReadAll(context.Background(), core.Mood); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestWriteFailurePropagates(t *testing.T) {
	diskFull := errors.New("disk full")
	s := New(failingKV{getErr: kv.ErrNotFound, putErr: diskFull}, applog.Discard())

	err := s.Append(context.Background(), focus("2025-01-01", 8, 3, 25, 8))
	if !errors.Is(err, diskFull) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
	if err := s.Clear(context.Background(), core.Focus); !errors.Is(err, diskFull) {
		t.Fatalf("expected wrapped delete error, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestStore(t)

	seed := []core.Entry{
		focus("2025-01-01", 8, 3, 25, 8),
		core.SkinEntry{Date: "2025-01-01", SleepHours: 7, WaterCups: 4, StressLevel: 7, Condition: core.ConditionIrritated},
		core.MoodEntry{Date: "2025-01-03", Mood: core.MoodTired, Triggers: []string{"exams"}},
		focus("2025-01-02", 5, 6, 10, 4),
		core.MoodEntry{Date: "2025-01-04", Mood: core.MoodHappy, Triggers: []string{}},
	}
	for _, e := range seed {
		if err := src.Append(ctx, e); err != nil {
			t.Fatalf("seed append: %v", err)
		}
	}

	exported := src.ExportAll(ctx)

	dst, _ := newTestStore(t)
	n, err := dst.Import(ctx, exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != len(seed) {
		t.Fatalf("imported %d entries, want %d", n, len(seed))
	}
	if diff := cmp.Diff(exported, dst.ExportAll(ctx)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExportAllOfEmptyStoreHasEmptyArrays(t *testing.T) {
	s, _ := newTestStore(t)
	snap := s.ExportAll(context.Background())
	if snap.Focus == nil || snap.Skin == nil || snap.Mood == nil {
		t.Fatalf("expected non-nil empty slices, got %+v", snap)
	}
}

func TestAppendRejectsNilEntry(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Append(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil entry")
	}
}

func TestReadVersionedTracksStoredState(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	a := New(backend, applog.Discard())
	b := New(backend, applog.Discard())

	_, empty := a.ReadVersioned(ctx, core.Focus)
	if empty == "" {
		t.Fatal("missing log should have a known fingerprint")
	}

	if err := b.Append(ctx, focus("2025-01-01", 8, 3, 25, 8)); err != nil {
		t.Fatal(err)
	}
	entries, afterAppend := a.ReadVersioned(ctx, core.Focus)
	if len(entries) != 1 || afterAppend == empty {
		t.Fatalf("write through another store not seen: %d entries, fingerprint %q", len(entries), afterAppend)
	}
	if _, again := a.ReadVersioned(ctx, core.Focus); again != afterAppend {
		t.Fatalf("fingerprint changed without a write: %q != %q", again, afterAppend)
	}

	if err := b.Clear(ctx, core.Focus); err != nil {
		t.Fatal(err)
	}
	if _, cleared := a.ReadVersioned(ctx, core.Focus); cleared != empty {
		t.Fatalf("cleared log fingerprint = %q, want %q", cleared, empty)
	}
}

func TestReadVersionedUnknownOnBackendFailure(t *testing.T) {
	s := New(failingKV{getErr: errors.New("io error")}, applog.Discard())
	if _, version := s.ReadVersioned(context.Background(), core.Skin); version != "" {
		t.Fatalf("fingerprint = %q, want unknown", version)
	}
}
