package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/motilal0/plcc-cortex-analyst/internal/export"
	"github.com/motilal0/plcc-cortex-analyst/internal/render"
	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

// handleRenderMessage builds the display view of one transcript entry,
// re-executing any SQL block on the session's pinned connection.
func handleRenderMessage(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Renderer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RENDER_NOT_CONFIGURED", "render dependencies are not configured", false, nil)
		return
	}
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}
	index, ok := messageIndex(w, r)
	if !ok {
		return
	}

	view, err := deps.Renderer.RenderMessage(r.Context(), session, index)
	if err != nil {
		if errors.Is(err, render.ErrMessageNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "MESSAGE_NOT_FOUND", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "RENDER_FAILED", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleExportResult streams the full result table of one message as a
// download in the requested format.
func handleExportResult(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Renderer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RENDER_NOT_CONFIGURED", "render dependencies are not configured", false, nil)
		return
	}
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}
	index, ok := messageIndex(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(raw)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), false, nil)
		return
	}

	payload, err := deps.Renderer.ExportResult(r.Context(), session, index, format)
	if err != nil {
		writeExportError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func writeExportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, render.ErrMessageNotFound):
		writeError(r.Context(), w, http.StatusNotFound, "MESSAGE_NOT_FOUND", err.Error(), false, nil)
	case errors.Is(err, render.ErrNoResult):
		writeError(r.Context(), w, http.StatusNotFound, "RESULT_NOT_FOUND", err.Error(), false, nil)
	default:
		var queryErr *warehouse.QueryError
		if errors.As(err, &queryErr) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", queryErr.Error(), false, map[string]any{"statement": queryErr.Statement})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), false, nil)
	}
}

func messageIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MESSAGE_INDEX", "message index must be a non-negative integer", false, nil)
		return 0, false
	}
	return index, true
}
