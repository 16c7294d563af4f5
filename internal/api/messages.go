package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/motilal0/plcc-cortex-analyst/internal/chat"
	"github.com/motilal0/plcc-cortex-analyst/internal/oracle"
	"github.com/motilal0/plcc-cortex-analyst/internal/render"
)

type dispatchRequest struct {
	Prompt string `json:"prompt"`
}

type suggestionRequest struct {
	MessageIndex int `json:"message_index"`
	ItemIndex    int `json:"item_index"`
}

type dispatchResponse struct {
	Messages     []chat.Message `json:"messages"`
	MessageCount int            `json:"message_count"`
}

// handleDispatchMessage runs one chat turn: append the prompt, relay it to
// the analyst, and consume a previously staged suggestion if one exists.
func handleDispatchMessage(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dispatcher == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DISPATCH_NOT_CONFIGURED", "dispatch dependencies are not configured", false, nil)
		return
	}
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}

	var request dispatchRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid dispatch request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt is required", false, nil)
		return
	}

	appended, err := deps.Dispatcher.Cycle(r.Context(), session, request.Prompt)
	if err != nil {
		writeDispatchError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dispatchResponse{Messages: appended, MessageCount: session.Len()})
}

// handleActivateSuggestion stages one suggestion by its activation key and
// immediately runs the consuming dispatch.
func handleActivateSuggestion(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dispatcher == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DISPATCH_NOT_CONFIGURED", "dispatch dependencies are not configured", false, nil)
		return
	}
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}

	var request suggestionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid suggestion request body", false, map[string]any{"details": err.Error()})
		return
	}

	message, ok := session.MessageAt(request.MessageIndex)
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "SUGGESTION_NOT_FOUND", "no message at the requested index", false, nil)
		return
	}
	prompt, ok := render.SuggestionPrompt(message, request.ItemIndex)
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "SUGGESTION_NOT_FOUND", "no suggestion at the requested key", false, map[string]any{
			"message_index": request.MessageIndex,
			"item_index":    request.ItemIndex,
		})
		return
	}

	session.SetActiveSuggestion(prompt)
	appended, err := deps.Dispatcher.Cycle(r.Context(), session, "")
	if err != nil {
		writeDispatchError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dispatchResponse{Messages: appended, MessageCount: session.Len()})
}

func writeDispatchError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	var oracleErr *oracle.Error
	if errors.As(err, &oracleErr) {
		writeError(r.Context(), w, http.StatusBadGateway, "ORACLE_ERROR", oracleErr.Error(), true, map[string]any{
			"oracle_status": oracleErr.Status,
			"request_id":    oracleErr.RequestID,
		})
		return
	}
	writeError(r.Context(), w, http.StatusBadGateway, "ORACLE_UNREACHABLE", err.Error(), true, nil)
}
