// Package worker keeps rendered chart payloads on disk in step with the
// entry logs, driven by change events and a periodic refresh.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"wellnesslog/internal/amqp"
	"wellnesslog/internal/analytics"
	"wellnesslog/internal/core"
	applog "wellnesslog/internal/log"
)

// InsightsFile is the payload written next to the per-category dashboards.
const InsightsFile = "insights.json"

// EntryReader reads a category log. *entrylog.Store implements it.
type EntryReader interface {
	ReadAll(ctx context.Context, c core.Category) []core.Entry
}

// ChartWorker renders dashboards straight from the logs, bypassing any
// process-local cache, so it sees writes made by other processes.
type ChartWorker struct {
	entries EntryReader
	dir     string
	logger  *applog.Logger
}

func NewChartWorker(entries EntryReader, dir string, logger *applog.Logger) *ChartWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ChartWorker{
		entries: entries,
		dir:     dir,
		logger:  logger.WithComponent(applog.ComponentWorker),
	}
}

// DashboardPath is where the dashboard of c is written.
func (w *ChartWorker) DashboardPath(c core.Category) string {
	return filepath.Join(w.dir, c.String()+".json")
}

// HandleEntryEvent re-renders the category named by the event and the
// insights. Events for unknown categories are logged and acknowledged.
func (w *ChartWorker) HandleEntryEvent(ctx context.Context, event *amqp.EntryEvent) error {
	c, err := core.ParseCategory(event.Category)
	if err != nil {
		w.logger.WarnContext(ctx, "Ignoring event for unknown category",
			applog.FieldEventID, event.ID,
			applog.FieldCategory, event.Category)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing entry event",
		applog.FieldEventID, event.ID,
		"type", event.Type,
		applog.FieldCategory, c.String(),
		applog.FieldEntryCount, event.Count)
	return w.Refresh(ctx, c)
}

// Refresh re-renders the dashboard of c and the insights.
func (w *ChartWorker) Refresh(ctx context.Context, c core.Category) error {
	snap := w.snapshot(ctx)
	if _, err := w.render(c, snap); err != nil {
		return err
	}
	return w.writeJSON(InsightsFile, analytics.Summarize(snap))
}

// RenderAll writes every dashboard and the insights. Used at startup and
// on the refresh tick to recover from missed events.
func (w *ChartWorker) RenderAll(ctx context.Context) error {
	snap := w.snapshot(ctx)

	g, _ := errgroup.WithContext(ctx)
	for _, c := range core.Categories() {
		g.Go(func() error {
			_, err := w.render(c, snap)
			return err
		})
	}
	g.Go(func() error {
		return w.writeJSON(InsightsFile, analytics.Summarize(snap))
	})
	if err := g.Wait(); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Rendered all dashboards",
		applog.FieldOperation, applog.OpRender,
		"dir", w.dir)
	return nil
}

// Run calls RenderAll every interval until ctx is done.
func (w *ChartWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RenderAll(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic render failed",
					applog.FieldError, err,
					applog.FieldOperation, applog.OpRender)
			}
		}
	}
}

func (w *ChartWorker) snapshot(ctx context.Context) core.Snapshot {
	var snap core.Snapshot
	for _, c := range core.Categories() {
		for _, e := range w.entries.ReadAll(ctx, c) {
			snap.Add(e)
		}
	}
	return snap
}

func (w *ChartWorker) render(c core.Category, snap core.Snapshot) (analytics.Dashboard, error) {
	dash, err := analytics.BuildDashboard(c, snap)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	if err := w.writeJSON(filepath.Base(w.DashboardPath(c)), dash); err != nil {
		return analytics.Dashboard{}, err
	}
	return dash, nil
}

// writeJSON replaces dir/name atomically so readers never see a partial
// payload.
func (w *ChartWorker) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(w.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
