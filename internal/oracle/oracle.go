// Package oracle talks to the hosted natural-language-to-SQL service. The
// service is a black box: it takes one user prompt plus a semantic model
// reference and returns an ordered list of typed content blocks.
package oracle

import (
	"context"
	"fmt"
)

// Block is one typed unit of the oracle's reply, tagged by Type. Unknown
// tags are preserved here; the dispatcher decides what to do with them.
type Block struct {
	Type        string   `json:"type"`
	Text        string   `json:"text,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Statement   string   `json:"statement,omitempty"`
}

// Reply is a parsed oracle response plus the correlation id the service
// returned for this request.
type Reply struct {
	Content   []Block
	RequestID string
}

type Client interface {
	Ask(ctx context.Context, prompt string) (Reply, error)
}

// Error reports a failed oracle call: HTTP status, raw response body, and
// the correlation id when the service returned one.
type Error struct {
	Status    int
	Body      string
	RequestID string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle request failed (id: %s) with status %d: %s", e.RequestID, e.Status, e.Body)
}

// TokenProvider supplies the session token the oracle authenticates with.
// In production this is the active warehouse connection's token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}
