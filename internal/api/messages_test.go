package api

import (
	"net/http"
	"testing"

	"github.com/motilal0/plcc-cortex-analyst/internal/oracle"
)

func suggestionsReply() oracle.Reply {
	return oracle.Reply{
		RequestID: "req-sugg",
		Content: []oracle.Block{
			{Type: "text", Text: "I can refine that."},
			{Type: "suggestions", Suggestions: []string{"Top regions by revenue?", "Monthly trend for EMEA?"}},
		},
	}
}

func TestDispatchMessageAppendsPair(t *testing.T) {
	h := newTestHandler(t, &fakeOracle{}, &fakeConn{}, map[string]string{})
	doJSON(t, h, http.MethodPost, "/v1/sessions", createSessionRequest{SessionID: "s-1"})

	rr := doJSON(t, h, http.MethodPost, "/v1/sessions/s-1/messages", dispatchRequest{Prompt: "revenue by region"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rr.Code, rr.Body.String())
	}
	var response dispatchResponse
	decodeBody(t, rr, &response)
	if len(response.Messages) != 2 || response.MessageCount != 2 {
		t.Fatalf("messages = %d, count = %d", len(response.Messages), response.MessageCount)
	}
	if response.Messages[0].Role != "user" || response.Messages[1].Role != "assistant" {
		t.Fatalf("roles = %q/%q", response.Messages[0].Role, response.Messages[1].Role)
	}
	if response.Messages[1].RequestID != "req-default" {
		t.Fatalf("assistant request id = %q", response.Messages[1].RequestID)
	}
	if response.Messages[0].RequestID != "" {
		t.Fatalf("user message carries request id %q", response.Messages[0].RequestID)
	}
}

func TestDispatchMessageRequiresPrompt(t *testing.T) {
	h := newTestHandler(t, &fakeOracle{}, &fakeConn{}, map[string]string{})
	doJSON(t, h, http.MethodPost, "/v1/sessions", createSessionRequest{SessionID: "s-1"})

	rr := doJSON(t, h, http.MethodPost, "/v1/sessions/s-1/messages", dispatchRequest{Prompt: "   "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	decodeBody(t, rr, &body)
	if body["error_code"] != "PROMPT_REQUIRED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestDispatchMessageReportsOracleFailure(t *testing.T) {
	failing := &fakeOracle{err: &oracle.Error{Status: 500, Body: "model unavailable", RequestID: "req-500"}}
	h := newTestHandler(t, failing, &fakeConn{}, map[string]string{})
	doJSON(t, h, http.MethodPost, "/v1/sessions", createSessionRequest{SessionID: "s-1"})

	rr := doJSON(t, h, http.MethodPost, "/v1/sessions/s-1/messages", dispatchRequest{Prompt: "revenue"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	decodeBody(t, rr, &body)
	if body["error_code"] != "ORACLE_ERROR" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	extra, _ := body["context"].(map[string]any)
	if extra["request_id"] != "req-500" {
		t.Fatalf("context = %v", extra)
	}
}

func TestActivateSuggestionConsumesExactlyOnce(t *testing.T) {
	fake := &fakeOracle{replies: map[string]oracle.Reply{"revenue": suggestionsReply()}}
	h := newTestHandler(t, fake, &fakeConn{}, map[string]string{})
	doJSON(t, h, http.MethodPost, "/v1/sessions", createSessionRequest{SessionID: "s-1"})
	doJSON(t, h, http.MethodPost, "/v1/sessions/s-1/messages", dispatchRequest{Prompt: "revenue"})

	rr := doJSON(t, h, http.MethodPost, "/v1/sessions/s-1/suggestions", suggestionRequest{MessageIndex: 1, ItemIndex: 1})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rr.Code, rr.Body.String())
	}
	var response dispatchResponse
	decodeBody(t, rr, &response)
	if len(response.Messages) != 2 || response.MessageCount != 4 {
		t.Fatalf("messages = %d, count = %d", len(response.Messages), response.MessageCount)
	}
	if got := response.Messages[0].Content[0].Text; got != "Monthly trend for EMEA?" {
		t.Fatalf("activated prompt = %q", got)
	}
	if len(fake.prompts) != 2 {
		t.Fatalf("oracle calls = %d, want 2", len(fake.prompts))
	}

	// the staged suggestion is gone, so a plain dispatch adds one pair only
	next := doJSON(t, h, http.MethodPost, "/v1/sessions/s-1/messages", dispatchRequest{Prompt: "another question"})
	var nextResponse dispatchResponse
	decodeBody(t, next, &nextResponse)
	if len(nextResponse.Messages) != 2 || nextResponse.MessageCount != 6 {
		t.Fatalf("follow-up messages = %d, count = %d", len(nextResponse.Messages), nextResponse.MessageCount)
	}
}

func TestActivateSuggestionRejectsUnknownKey(t *testing.T) {
	fake := &fakeOracle{replies: map[string]oracle.Reply{"revenue": suggestionsReply()}}
	h := newTestHandler(t, fake, &fakeConn{}, map[string]string{})
	doJSON(t, h, http.MethodPost, "/v1/sessions", createSessionRequest{SessionID: "s-1"})
	doJSON(t, h, http.MethodPost, "/v1/sessions/s-1/messages", dispatchRequest{Prompt: "revenue"})

	cases := []suggestionRequest{
		{MessageIndex: 1, ItemIndex: 5},
		{MessageIndex: 0, ItemIndex: 0},
		{MessageIndex: 9, ItemIndex: 0},
	}
	for _, tc := range cases {
		rr := doJSON(t, h, http.MethodPost, "/v1/sessions/s-1/suggestions", tc)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("key (%d,%d) status = %d", tc.MessageIndex, tc.ItemIndex, rr.Code)
		}
	}
	if len(fake.prompts) != 1 {
		t.Fatalf("oracle calls = %d, want only the initial dispatch", len(fake.prompts))
	}
}
