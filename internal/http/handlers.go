package http

import (
	"errors"
	"net/http"
	"strings"

	"wellnesslog/internal/core"
	applog "wellnesslog/internal/log"
	"wellnesslog/internal/services"
)

// pathCategory resolves the {category} path segment, writing a 404 when it
// names no category.
func pathCategory(w http.ResponseWriter, r *http.Request) (core.Category, bool) {
	c, err := core.ParseCategory(r.PathValue("category"))
	if err != nil {
		NotFoundError("Unknown category. Use focus, skin or mood.").Write(w)
		return "", false
	}
	return c, true
}

// handleSubmit validates and stores one entry. Validation failures answer
// 422 with the full field map.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCategory(w, r)
	if !ok {
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
			return
		}
		BadRequestError("Invalid request format").Write(w)
		return
	}

	result, err := s.svc.Submit(r.Context(), c, parser.RawFields())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Entry submission failed",
			applog.FieldError, err,
			applog.FieldCategory, c.String(),
			applog.FieldOperation, applog.OpAppend)
		InternalServerError("The entry could not be saved").Write(w)
		return
	}
	if !result.Accepted {
		NewResponse().Status(http.StatusUnprocessableEntity).JSON(result).Write(w)
		return
	}

	resp := NewResponse().Status(http.StatusCreated).JSON(result)
	if result.Dashboard != nil {
		resp.TriggerEntryCreated(c.String(), result.Dashboard.Count)
	}
	if result.ResetForm {
		resp.TriggerFormReset(result.Today)
	}
	resp.Write(w)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCategory(w, r)
	if !ok {
		return
	}
	entries, err := s.svc.Entries(r.Context(), c)
	if err != nil {
		InternalServerError("Could not read entries").Write(w)
		return
	}
	NewResponse().JSON(map[string]any{
		"category": c,
		"count":    len(entries),
		"entries":  entries,
	}).Write(w)
}

// handleClear empties a category only with ?confirm=yes. Without it the
// request is answered 428 and nothing is removed.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCategory(w, r)
	if !ok {
		return
	}

	confirmed := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("confirm")), "yes")
	cleared, err := s.svc.Clear(r.Context(), c, confirmed)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Clear failed",
			applog.FieldError, err,
			applog.FieldCategory, c.String(),
			applog.FieldOperation, applog.OpDelete)
		InternalServerError("The category could not be cleared").Write(w)
		return
	}
	if !cleared {
		NewResponse().Status(http.StatusPreconditionRequired).JSON(map[string]any{
			"cleared": false,
			"message": "Not cleared. Repeat the request with confirm=yes to delete every " + c.String() + " entry.",
		}).Write(w)
		return
	}
	NewResponse().TriggerCategoryCleared(c.String()).JSON(map[string]any{"cleared": true}).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c, ok := pathCategory(w, r)
	if !ok {
		return
	}
	dash, err := s.svc.Dashboard(r.Context(), c)
	if err != nil {
		InternalServerError("Could not build dashboard").Write(w)
		return
	}
	NewResponse().JSON(dash).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	in, err := s.svc.Insights(r.Context())
	if err != nil {
		InternalServerError("Could not build insights").Write(w)
		return
	}
	NewResponse().JSON(in).Write(w)
}

// handleExport sends every log as one pretty-printed attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Export(r.Context())
	NewResponse().
		Header("Content-Disposition", `attachment; filename="`+exportFilename(s.now())+`"`).
		JSON(snap).
		Write(w)
}

// handleImport appends an export document after the existing logs.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	snap, err := decodeSnapshot(r)
	if err != nil {
		BadRequestError("Invalid export document").Write(w)
		return
	}
	n, err := s.svc.Import(r.Context(), snap)
	if errors.Is(err, services.ErrInvalidImport) {
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Import failed",
			applog.FieldError, err,
			applog.FieldEntryCount, n,
			applog.FieldOperation, applog.OpImport)
		NewResponse().Status(http.StatusInternalServerError).JSON(map[string]any{
			"error":    "Import stopped early",
			"imported": n,
		}).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"imported": n}).Write(w)
}
