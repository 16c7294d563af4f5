package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/motilal0/plcc-cortex-analyst/internal/observability"
	"github.com/motilal0/plcc-cortex-analyst/internal/oracle"
)

// Dispatcher turns one prompt into one user/assistant message pair on a
// session's transcript.
type Dispatcher struct {
	Oracle oracle.Client
	Logger *slog.Logger

	// FailureNotices controls whether a failed oracle call appends a
	// plain-text assistant message describing the failure. With notices
	// off a failed dispatch leaves only the user message behind.
	FailureNotices bool
}

// Dispatch appends the user message, asks the oracle, and appends the
// assistant reply. The user message is appended before the oracle call so
// it is always visible even when the call fails. Returns the messages
// appended by this call in order.
func (d *Dispatcher) Dispatch(ctx context.Context, session *Session, prompt string) ([]Message, error) {
	user := UserMessage(prompt)
	session.Append(user)
	appended := []Message{user}

	start := time.Now()
	reply, err := d.Oracle.Ask(ctx, prompt)
	elapsed := time.Since(start)
	if err != nil {
		observability.ObserveDispatch("error", elapsed)
		if d.Logger != nil {
			d.Logger.ErrorContext(ctx, "oracle dispatch failed",
				slog.String("session_id", session.ID()),
				slog.Any("error", err),
			)
		}
		if d.FailureNotices {
			notice := failureNotice(err)
			session.Append(notice)
			appended = append(appended, notice)
		}
		return appended, err
	}

	assistant := AssistantMessage(reply.RequestID, d.convertBlocks(ctx, reply.Content)...)
	session.Append(assistant)
	appended = append(appended, assistant)
	observability.ObserveDispatch("ok", elapsed)
	return appended, nil
}

// Cycle runs one input-driven dispatch and then consumes a pending active
// suggestion with exactly one additional dispatch. A suggestion is never
// chained: only an explicit click stages one, so a cycle dispatches at
// most twice.
func (d *Dispatcher) Cycle(ctx context.Context, session *Session, prompt string) ([]Message, error) {
	session.lockCycle()
	defer session.unlockCycle()

	var appended []Message
	if strings.TrimSpace(prompt) != "" {
		messages, err := d.Dispatch(ctx, session, prompt)
		appended = append(appended, messages...)
		if err != nil {
			return appended, err
		}
	}

	if next, ok := session.TakeActiveSuggestion(); ok {
		messages, err := d.Dispatch(ctx, session, next)
		appended = append(appended, messages...)
		if err != nil {
			return appended, err
		}
	}
	return appended, nil
}

func (d *Dispatcher) convertBlocks(ctx context.Context, blocks []oracle.Block) []ContentBlock {
	converted := make([]ContentBlock, 0, len(blocks))
	for _, block := range blocks {
		switch block.Type {
		case string(BlockText):
			converted = append(converted, TextBlock(block.Text))
		case string(BlockSuggestions):
			converted = append(converted, SuggestionsBlock(block.Suggestions...))
		case string(BlockSQL):
			converted = append(converted, SQLBlock(block.Statement))
		default:
			// unknown tags are dropped, loudly
			if d.Logger != nil {
				d.Logger.WarnContext(ctx, "dropping unrecognized oracle content block",
					slog.String("block_type", block.Type),
				)
			}
		}
	}
	return converted
}

func failureNotice(err error) Message {
	var oracleErr *oracle.Error
	if errors.As(err, &oracleErr) {
		text := fmt.Sprintf(
			"The analyst service could not answer this request (status %d, request id %s). Please try again.",
			oracleErr.Status, oracleErr.RequestID,
		)
		return AssistantMessage(oracleErr.RequestID, TextBlock(text))
	}
	return AssistantMessage("", TextBlock(fmt.Sprintf("The analyst service could not be reached: %v. Please try again.", err)))
}
