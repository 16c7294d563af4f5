package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/motilal0/plcc-cortex-analyst/internal/chat"
)

type createSessionRequest struct {
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

type sessionDetailResponse struct {
	sessionResponse
	Messages []chat.Message `json:"messages"`
}

// handleCreateSession initializes a session and its pinned warehouse
// connection. Re-posting an existing id returns the session untouched so
// clients can resume without resetting the transcript.
func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session dependencies are not configured", false, nil)
		return
	}

	var request createSessionRequest
	if err := decodeOptionalBody(r, &request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid session request body", false, map[string]any{"details": err.Error()})
		return
	}

	session, created, err := deps.Sessions.Create(r.Context(), request.SessionID)
	if err != nil {
		if errors.Is(err, chat.ErrSessionLimit) {
			writeError(r.Context(), w, http.StatusTooManyRequests, "SESSION_LIMIT", err.Error(), true, nil)
			return
		}
		writeError(r.Context(), w, http.StatusServiceUnavailable, "WAREHOUSE_UNAVAILABLE", err.Error(), true, nil)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, sessionView(session))
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	session, ok := lookupSession(deps, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionDetailResponse{
		sessionResponse: sessionView(session),
		Messages:        session.Messages(),
	})
}

// handleDeleteSession tears a session down and releases its warehouse
// connection.
func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session dependencies are not configured", false, nil)
		return
	}
	id := r.PathValue("session")
	if err := deps.Sessions.Remove(id); err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_TEARDOWN_FAILED", err.Error(), false, nil)
		return
	}
	deps.Archiver.DeleteSession(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func lookupSession(deps Dependencies, w http.ResponseWriter, r *http.Request) (*chat.Session, bool) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session dependencies are not configured", false, nil)
		return nil, false
	}
	session, err := deps.Sessions.Get(r.PathValue("session"))
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
		return nil, false
	}
	return session, true
}

func sessionView(session *chat.Session) sessionResponse {
	return sessionResponse{
		SessionID:    session.ID(),
		CreatedAt:    session.CreatedAt(),
		MessageCount: session.Len(),
	}
}

// decodeOptionalBody decodes a JSON body when one is present; an empty
// body leaves dst zero-valued.
func decodeOptionalBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
