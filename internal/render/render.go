// Package render turns transcript messages into view payloads: text
// verbatim, suggestions with activation keys, and SQL blocks with a
// freshly executed result table.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/motilal0/plcc-cortex-analyst/internal/archive"
	"github.com/motilal0/plcc-cortex-analyst/internal/chat"
	"github.com/motilal0/plcc-cortex-analyst/internal/export"
	"github.com/motilal0/plcc-cortex-analyst/internal/observability"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNoResult        = errors.New("message has no sql result")
)

// Renderer builds message views and result exports. Rendered tables are
// capped at rowLimit rows; exports always carry the full result.
type Renderer struct {
	rowLimit int
	archiver *archive.Archiver
	logger   *slog.Logger
}

func New(rowLimit int, archiver *archive.Archiver, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{rowLimit: rowLimit, archiver: archiver, logger: logger}
}

// MessageView is one transcript message prepared for display.
type MessageView struct {
	Index     int         `json:"index"`
	Role      chat.Role   `json:"role"`
	RequestID string      `json:"request_id,omitempty"`
	Blocks    []BlockView `json:"blocks"`
}

// BlockView renders one content block. Exactly one payload field is set,
// selected by Type.
type BlockView struct {
	Type        chat.BlockType   `json:"type"`
	Text        string           `json:"text,omitempty"`
	Suggestions []SuggestionView `json:"suggestions,omitempty"`
	SQL         *SQLView         `json:"sql,omitempty"`
}

// SuggestionView is one activatable follow-up prompt. MessageIndex and
// ItemIndex together form its activation key.
type SuggestionView struct {
	MessageIndex int    `json:"message_index"`
	ItemIndex    int    `json:"item_index"`
	Prompt       string `json:"prompt"`
}

// SQLView is a statement with its re-executed result table. On execution
// failure Error is set and the table fields stay empty.
type SQLView struct {
	Statement  string       `json:"statement"`
	Columns    []string     `json:"columns,omitempty"`
	Rows       [][]any      `json:"rows,omitempty"`
	Truncated  bool         `json:"truncated,omitempty"`
	DurationMS int64        `json:"duration_ms,omitempty"`
	Error      string       `json:"error,omitempty"`
	Exports    []ExportView `json:"exports,omitempty"`
}

// ExportView describes one downloadable encoding of the result table.
type ExportView struct {
	Format string `json:"format"`
	Href   string `json:"href"`
}

// RenderMessage builds the view for one transcript entry. SQL blocks are
// re-executed on the session's pinned connection; execution failures are
// rendered inside the block instead of failing the call.
func (r *Renderer) RenderMessage(ctx context.Context, session *chat.Session, index int) (MessageView, error) {
	message, ok := session.MessageAt(index)
	if !ok {
		return MessageView{}, ErrMessageNotFound
	}

	view := MessageView{
		Index:     index,
		Role:      message.Role,
		RequestID: message.RequestID,
		Blocks:    make([]BlockView, 0, len(message.Content)),
	}
	itemIndex := 0
	for _, block := range message.Content {
		switch block.Type {
		case chat.BlockText:
			view.Blocks = append(view.Blocks, BlockView{Type: chat.BlockText, Text: block.Text})
		case chat.BlockSuggestions:
			items := make([]SuggestionView, 0, len(block.Suggestions))
			for _, prompt := range block.Suggestions {
				items = append(items, SuggestionView{MessageIndex: index, ItemIndex: itemIndex, Prompt: prompt})
				itemIndex++
			}
			view.Blocks = append(view.Blocks, BlockView{Type: chat.BlockSuggestions, Suggestions: items})
		case chat.BlockSQL:
			view.Blocks = append(view.Blocks, BlockView{Type: chat.BlockSQL, SQL: r.renderSQL(ctx, session, index, block.Statement)})
		}
	}
	return view, nil
}

// ExportResult re-executes the message's SQL block without the render row
// cap and encodes the full result in the requested format. When an archiver
// is configured the result is persisted in every format as a side effect.
func (r *Renderer) ExportResult(ctx context.Context, session *chat.Session, index int, format export.Format) ([]byte, error) {
	message, ok := session.MessageAt(index)
	if !ok {
		return nil, ErrMessageNotFound
	}
	statement, ok := sqlStatement(message)
	if !ok {
		return nil, ErrNoResult
	}

	result, err := session.Executor().Execute(ctx, trimStatement(statement))
	if err != nil {
		return nil, err
	}
	payload, err := export.Encode(format, result)
	if err != nil {
		return nil, err
	}
	observability.ObserveExport(string(format), len(payload))
	r.archiver.SaveResult(ctx, session.ID(), index, result)
	return payload, nil
}

// SuggestionPrompt resolves an activation key against a message, using the
// same item numbering RenderMessage emits.
func SuggestionPrompt(message chat.Message, itemIndex int) (string, bool) {
	if itemIndex < 0 {
		return "", false
	}
	seen := 0
	for _, block := range message.Content {
		if block.Type != chat.BlockSuggestions {
			continue
		}
		for _, prompt := range block.Suggestions {
			if seen == itemIndex {
				return prompt, true
			}
			seen++
		}
	}
	return "", false
}

func (r *Renderer) renderSQL(ctx context.Context, session *chat.Session, index int, statement string) *SQLView {
	view := &SQLView{Statement: statement}
	result, err := session.Executor().Execute(ctx, r.limitStatement(statement))
	if err != nil {
		r.logger.Warn("result render failed",
			slog.String("session_id", session.ID()),
			slog.Int("message_index", index),
			slog.String("error", err.Error()),
		)
		view.Error = err.Error()
		return view
	}

	view.Columns = result.Columns
	view.Rows = result.Rows
	view.DurationMS = result.Duration.Milliseconds()
	if r.rowLimit > 0 && len(view.Rows) > r.rowLimit {
		view.Rows = view.Rows[:r.rowLimit]
		view.Truncated = true
	}
	for _, format := range export.Formats() {
		view.Exports = append(view.Exports, ExportView{
			Format: string(format),
			Href:   fmt.Sprintf("/v1/sessions/%s/messages/%d/export?format=%s", session.ID(), index, format),
		})
	}
	return view
}

// limitStatement caps rendered rows by wrapping the statement in a LIMIT
// subquery. One row past the cap is requested so truncation is detectable.
func (r *Renderer) limitStatement(statement string) string {
	trimmed := trimStatement(statement)
	if r.rowLimit <= 0 {
		return trimmed
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", trimmed, r.rowLimit+1)
}

func trimStatement(statement string) string {
	return strings.TrimSuffix(strings.TrimSpace(statement), ";")
}

func sqlStatement(message chat.Message) (string, bool) {
	for _, block := range message.Content {
		if block.Type == chat.BlockSQL && strings.TrimSpace(block.Statement) != "" {
			return block.Statement, true
		}
	}
	return "", false
}
