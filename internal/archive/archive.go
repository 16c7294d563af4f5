// Package archive persists rendered query results to an object store so
// exports survive session teardown.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/motilal0/plcc-cortex-analyst/internal/export"
	"github.com/motilal0/plcc-cortex-analyst/internal/observability"
	"github.com/motilal0/plcc-cortex-analyst/internal/storage"
	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

// Archiver writes one object per export format for each archived result.
// Archive failures are reported but never surfaced to callers: rendering
// must not depend on object-store availability.
type Archiver struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

func New(store storage.ObjectStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{store: store, logger: logger}
}

// SaveResult encodes the result in every supported format and uploads each
// under sessions/<session>/messages/<index>/.
func (a *Archiver) SaveResult(ctx context.Context, sessionID string, messageIndex int, result warehouse.Result) {
	if a == nil || a.store == nil {
		return
	}
	for _, format := range export.Formats() {
		payload, err := export.Encode(format, result)
		if err != nil {
			a.reportFailure(sessionID, messageIndex, format, err)
			continue
		}
		key := ObjectKey(sessionID, messageIndex, format)
		opts := storage.PutOptions{ContentType: format.ContentType()}
		if _, err := a.store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), opts); err != nil {
			a.reportFailure(sessionID, messageIndex, format, err)
		}
	}
}

// DeleteSession removes everything archived for one session. Like
// SaveResult it is best effort.
func (a *Archiver) DeleteSession(ctx context.Context, sessionID string) {
	if a == nil || a.store == nil {
		return
	}
	if err := a.store.DeletePrefix(ctx, fmt.Sprintf("sessions/%s", sessionID)); err != nil {
		observability.IncrementArchiveFailure()
		a.logger.Warn("session archive cleanup failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// ObjectKey returns the object-store key for one archived export.
func ObjectKey(sessionID string, messageIndex int, format export.Format) string {
	return fmt.Sprintf("sessions/%s/messages/%d/%s", sessionID, messageIndex, format.Filename())
}

func (a *Archiver) reportFailure(sessionID string, messageIndex int, format export.Format, err error) {
	observability.IncrementArchiveFailure()
	a.logger.Warn("result archive failed",
		slog.String("session_id", sessionID),
		slog.Int("message_index", messageIndex),
		slog.String("format", string(format)),
		slog.String("error", err.Error()),
	)
}
