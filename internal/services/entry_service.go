package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"wellnesslog/internal/amqp"
	"wellnesslog/internal/analytics"
	"wellnesslog/internal/cache"
	"wellnesslog/internal/core"
	"wellnesslog/internal/entrylog"
	applog "wellnesslog/internal/log"
)

const insightsKey = "insights"

// EventPublisher announces entry log changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, event *amqp.EntryEvent) error
}

// SubmitResult is what a form submission returns. Errors always holds every
// field of the category; Accepted is true only when all messages are empty.
type SubmitResult struct {
	Accepted  bool                 `json:"accepted"`
	Errors    core.FieldErrors     `json:"errors"`
	Entry     core.Entry           `json:"entry,omitempty"`
	Dashboard *analytics.Dashboard `json:"dashboard,omitempty"`
	// ResetForm and Today tell the mood form to clear itself and default
	// the date field again.
	ResetForm bool   `json:"resetForm,omitempty"`
	Today     string `json:"today,omitempty"`
}

// cached pairs a derived view with the log state it was computed from. A
// hit only counts when the log still has that state, so writes from other
// processes or racing requests can never leave a stale view behind.
type cached[T any] struct {
	version entrylog.Fingerprint
	value   T
}

// EntryService ties validation, the entry logs, the derived views and
// change events together. Storage errors are returned; publish errors are
// only logged because the entry is already saved.
type EntryService struct {
	store      *entrylog.Store
	publisher  EventPublisher
	dashboards *cache.LRUCache[cached[analytics.Dashboard]]
	insights   *cache.LRUCache[cached[analytics.Insights]]
	logger     *applog.Logger
	events     *applog.StructuredLogger
	now        func() time.Time
}

func NewEntryService(store *entrylog.Store, publisher EventPublisher, logger *applog.Logger, cacheTTL time.Duration) *EntryService {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentEntries)
	return &EntryService{
		store:      store,
		publisher:  publisher,
		dashboards: cache.NewLRUCache[cached[analytics.Dashboard]](len(core.Categories()), cacheTTL),
		insights:   cache.NewLRUCache[cached[analytics.Insights]](1, cacheTTL),
		logger:     logger,
		events:     applog.NewStructuredLogger(logger),
		now:        time.Now,
	}
}

// Caches returns the service's caches for periodic cleanup.
func (s *EntryService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.dashboards, s.insights}
}

// Submit validates raw form input and, when every field passes, appends the
// entry and returns the recomputed dashboard.
func (s *EntryService) Submit(ctx context.Context, c core.Category, raw core.RawFields) (SubmitResult, error) {
	if !c.IsValid() {
		return SubmitResult{}, fmt.Errorf("submit: %w: %q", core.ErrUnknownCategory, string(c))
	}

	now := s.now()
	entry, errs := core.Validate(c, raw, now)
	if !errs.Valid() {
		s.events.LogValidationFailed(ctx, c.String(), errs.Failed())
		return SubmitResult{Errors: errs}, nil
	}

	if err := s.store.Append(ctx, entry); err != nil {
		return SubmitResult{}, fmt.Errorf("save %s entry: %w", c, err)
	}
	s.invalidate(c)

	dash, err := s.Dashboard(ctx, c)
	if err != nil {
		return SubmitResult{}, err
	}
	s.events.LogEntryAppended(ctx, c.String(), dash.Count)
	s.publish(ctx, amqp.EventEntryAppended, c, dash.Count)

	result := SubmitResult{Accepted: true, Errors: errs, Entry: entry, Dashboard: &dash}
	if c == core.Mood {
		result.ResetForm = true
		result.Today = now.Format(core.DateLayout)
	}
	return result, nil
}

// Entries returns the log of c in insertion order.
func (s *EntryService) Entries(ctx context.Context, c core.Category) ([]core.Entry, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("list: %w: %q", core.ErrUnknownCategory, string(c))
	}
	return s.store.ReadAll(ctx, c), nil
}

// Clear empties the log of c. Without confirmation nothing happens and
// cleared is false.
func (s *EntryService) Clear(ctx context.Context, c core.Category, confirmed bool) (cleared bool, err error) {
	if !c.IsValid() {
		return false, fmt.Errorf("clear: %w: %q", core.ErrUnknownCategory, string(c))
	}
	if !confirmed {
		s.logger.InfoContext(ctx, "Clear not confirmed, nothing removed",
			applog.FieldCategory, c.String(),
			applog.FieldOperation, applog.OpDelete)
		return false, nil
	}

	if err := s.store.Clear(ctx, c); err != nil {
		return false, err
	}
	s.invalidate(c)
	s.publish(ctx, amqp.EventCategoryCleared, c, 0)
	return true, nil
}

// Dashboard returns the charts and tips of c, computed from the full log.
// The log is always read; the cache only saves recomputing an unchanged one.
func (s *EntryService) Dashboard(ctx context.Context, c core.Category) (analytics.Dashboard, error) {
	if !c.IsValid() {
		return analytics.Dashboard{}, fmt.Errorf("dashboard: %w: %q", core.ErrUnknownCategory, string(c))
	}

	entries, version := s.store.ReadVersioned(ctx, c)
	if hit, ok := s.dashboards.Get(c.String()); ok && version != "" && hit.version == version {
		return hit.value, nil
	}

	var snap core.Snapshot
	for _, e := range entries {
		snap.Add(e)
	}
	dash, err := analytics.BuildDashboard(c, snap)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	if version != "" {
		s.dashboards.Set(c.String(), cached[analytics.Dashboard]{version: version, value: dash})
	}
	return dash, nil
}

// Dashboards builds every category's dashboard concurrently.
func (s *EntryService) Dashboards(ctx context.Context) ([]analytics.Dashboard, error) {
	categories := core.Categories()
	out := make([]analytics.Dashboard, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range categories {
		g.Go(func() error {
			dash, err := s.Dashboard(gctx, c)
			if err != nil {
				return err
			}
			out[i] = dash
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Insights returns the three summary sentences. The category logs are read
// concurrently.
func (s *EntryService) Insights(ctx context.Context) (analytics.Insights, error) {
	categories := core.Categories()
	parts := make([]core.Snapshot, len(categories))
	versions := make([]entrylog.Fingerprint, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range categories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, version := s.store.ReadVersioned(gctx, c)
			for _, e := range entries {
				parts[i].Add(e)
			}
			versions[i] = version
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return analytics.Insights{}, err
	}

	version := combineVersions(versions)
	if hit, ok := s.insights.Get(insightsKey); ok && version != "" && hit.version == version {
		return hit.value, nil
	}

	var snap core.Snapshot
	for _, p := range parts {
		snap.Focus = append(snap.Focus, p.Focus...)
		snap.Skin = append(snap.Skin, p.Skin...)
		snap.Mood = append(snap.Mood, p.Mood...)
	}
	in := analytics.Summarize(snap)
	if version != "" {
		s.insights.Set(insightsKey, cached[analytics.Insights]{version: version, value: in})
	}
	return in, nil
}

// combineVersions joins per-category fingerprints; any unknown one makes
// the whole state unknown.
func combineVersions(versions []entrylog.Fingerprint) entrylog.Fingerprint {
	parts := make([]string, len(versions))
	for i, v := range versions {
		if v == "" {
			return ""
		}
		parts[i] = string(v)
	}
	return entrylog.Fingerprint(strings.Join(parts, "|"))
}

// Export returns the combined snapshot of all categories.
func (s *EntryService) Export(ctx context.Context) core.Snapshot {
	snap := s.store.ExportAll(ctx)
	s.logger.InfoContext(ctx, "Entries exported",
		applog.FieldOperation, applog.OpExport,
		"focus", len(snap.Focus),
		"skin", len(snap.Skin),
		"mood", len(snap.Mood))
	return snap
}

// Import appends every entry of snap after the existing logs. Entries go
// through the admission rules first; one invalid entry rejects the whole
// document and nothing is written.
func (s *EntryService) Import(ctx context.Context, snap core.Snapshot) (int, error) {
	checked, err := checkSnapshot(snap)
	if err != nil {
		return 0, err
	}

	n, err := s.store.Import(ctx, checked)
	s.dashboards.Purge()
	s.insights.Purge()
	if n > 0 {
		for _, c := range core.Categories() {
			if checked.Len(c) > 0 {
				s.publish(ctx, amqp.EventSnapshotImported, c, len(s.store.ReadAll(ctx, c)))
			}
		}
	}
	if err != nil {
		return n, err
	}

	s.logger.InfoContext(ctx, "Entries imported",
		applog.FieldOperation, applog.OpImport,
		applog.FieldEntryCount, n)
	return n, nil
}

// ErrInvalidImport reports an export document holding an entry that fails
// validation.
var ErrInvalidImport = errors.New("invalid entry in import")

func checkSnapshot(snap core.Snapshot) (core.Snapshot, error) {
	var out core.Snapshot
	for _, c := range core.Categories() {
		for i, e := range snap.Entries(c) {
			checked, errs := core.CheckEntry(e)
			if !errs.Valid() {
				return core.Snapshot{}, fmt.Errorf("%w: %s entry %d: %s", ErrInvalidImport, c, i, strings.Join(errs.Failed(), ", "))
			}
			out.Add(checked)
		}
	}
	return out, nil
}

func (s *EntryService) invalidate(c core.Category) {
	s.dashboards.Delete(c.String())
	s.insights.Delete(insightsKey)
}

func (s *EntryService) publish(ctx context.Context, eventType amqp.EventType, c core.Category, count int) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping event", "type", eventType)
		return
	}

	event := amqp.NewEntryEvent(eventType, c.String(), count)
	if err := s.publisher.PublishEntryEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish entry event",
			applog.FieldError, err,
			applog.FieldEventID, event.ID,
			applog.FieldCategory, c.String(),
			applog.FieldOperation, applog.OpPublish)
	}
}
