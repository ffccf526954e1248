// Package entrylog implements the append-only, per-category entry logs.
//
// Each category is persisted as one JSON array under its storage key. Append
// reads the whole array, adds one entry and writes the whole array back, so
// the cost grows with the log; the expected scale is tens to low thousands
// of entries. Reads never fail: a missing, unreadable or corrupt log is
// reported as empty and the problem goes to the warning log only.
package entrylog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"wellnesslog/internal/core"
	"wellnesslog/internal/kv"
	applog "wellnesslog/internal/log"
)

// Fingerprint identifies one stored state of a log: equal fingerprints mean
// equal stored bytes. The zero value means the state is unknown because the
// backend read failed.
type Fingerprint string

// emptyFingerprint is the state of a log that was never written or was
// cleared.
const emptyFingerprint Fingerprint = "empty"

type Store struct {
	// mu serialises read-modify-write cycles within this process. Writers
	// in other processes sharing the backend still follow last-write-wins.
	mu     sync.Mutex
	kv     kv.Store
	logger *applog.Logger
}

func New(store kv.Store, logger *applog.Logger) *Store {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Store{kv: store, logger: logger.WithComponent(applog.ComponentStorage)}
}

// Append adds e at the end of its category's log.
func (s *Store) Append(ctx context.Context, e core.Entry) error {
	if e == nil {
		return errors.New("append nil entry")
	}
	c := e.Category()
	if !c.IsValid() {
		return fmt.Errorf("append: %w: %q", core.ErrUnknownCategory, string(c))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := core.Snapshot{}
	s.load(ctx, c, &snap)
	snap.Add(e)

	if err := s.write(ctx, c, snap); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "Entry appended",
		applog.FieldCategory, c.String(),
		applog.FieldEntryCount, snap.Len(c),
		applog.FieldOperation, applog.OpAppend)
	return nil
}

// ReadAll returns the category's entries in insertion order.
func (s *Store) ReadAll(ctx context.Context, c core.Category) []core.Entry {
	entries, _ := s.ReadVersioned(ctx, c)
	return entries
}

// ReadVersioned is ReadAll plus the fingerprint of the bytes the entries
// were decoded from. Writes from any process sharing the backend change it.
func (s *Store) ReadVersioned(ctx context.Context, c core.Category) ([]core.Entry, Fingerprint) {
	snap := core.Snapshot{}
	version := s.load(ctx, c, &snap)
	return snap.Entries(c), version
}

// Clear removes every entry of c. Callers must obtain explicit confirmation
// first; the operation cannot be undone.
func (s *Store) Clear(ctx context.Context, c core.Category) error {
	if !c.IsValid() {
		return fmt.Errorf("clear: %w: %q", core.ErrUnknownCategory, string(c))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, c.StorageKey()); err != nil {
		return fmt.Errorf("clear %s: %w", c, err)
	}

	s.logger.InfoContext(ctx, "Category cleared",
		applog.FieldCategory, c.String(),
		applog.FieldOperation, applog.OpDelete)
	return nil
}

// ExportAll returns every category's full log. It does not modify anything.
func (s *Store) ExportAll(ctx context.Context) core.Snapshot {
	snap := core.Snapshot{}
	for _, c := range core.Categories() {
		s.load(ctx, c, &snap)
	}
	snap.Normalize()
	return snap
}

// Import appends every entry of snap, category by category, in log order.
// Feeding the result of ExportAll into an empty store reproduces it.
func (s *Store) Import(ctx context.Context, snap core.Snapshot) (int, error) {
	n := 0
	for _, c := range core.Categories() {
		for _, e := range snap.Entries(c) {
			if err := s.Append(ctx, e); err != nil {
				return n, fmt.Errorf("import %s entry %d: %w", c, n, err)
			}
			n++
		}
	}
	return n, nil
}

// load decodes the stored log of c into snap and returns the fingerprint of
// what was read. Any failure leaves the category empty.
func (s *Store) load(ctx context.Context, c core.Category, snap *core.Snapshot) Fingerprint {
	data, err := s.kv.Get(ctx, c.StorageKey())
	if errors.Is(err, kv.ErrNotFound) {
		return emptyFingerprint
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Entry log unreadable, treating as empty",
			applog.FieldCategory, c.String(),
			applog.FieldError, err.Error(),
			"error_type", applog.ErrorTypeDatabase)
		return ""
	}
	if err := decode(c, data, snap); err != nil {
		s.logger.WarnContext(ctx, "Entry log corrupt, treating as empty",
			applog.FieldCategory, c.String(),
			applog.FieldError, err.Error(),
			"error_type", applog.ErrorTypeCorruptData)
	}
	return fingerprint(data)
}

func fingerprint(data []byte) Fingerprint {
	return Fingerprint(fmt.Sprintf("%d:%016x", len(data), xxhash.Sum64(data)))
}

func decode(c core.Category, data []byte, snap *core.Snapshot) error {
	switch c {
	case core.Focus:
		var entries []core.FocusEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		snap.Focus = entries
	case core.Skin:
		var entries []core.SkinEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		snap.Skin = entries
	case core.Mood:
		var entries []core.MoodEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		snap.Mood = entries
	default:
		return fmt.Errorf("%w: %q", core.ErrUnknownCategory, string(c))
	}
	return nil
}

func (s *Store) write(ctx context.Context, c core.Category, snap core.Snapshot) error {
	var (
		data []byte
		err  error
	)
	switch c {
	case core.Focus:
		data, err = json.Marshal(snap.Focus)
	case core.Skin:
		data, err = json.Marshal(snap.Skin)
	case core.Mood:
		data, err = json.Marshal(snap.Mood)
	}
	if err != nil {
		return fmt.Errorf("marshal %s log: %w", c, err)
	}
	if err := s.kv.Put(ctx, c.StorageKey(), data); err != nil {
		return fmt.Errorf("write %s log: %w", c, err)
	}
	return nil
}
