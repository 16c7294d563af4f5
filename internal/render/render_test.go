package render

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/motilal0/plcc-cortex-analyst/internal/archive"
	"github.com/motilal0/plcc-cortex-analyst/internal/chat"
	"github.com/motilal0/plcc-cortex-analyst/internal/export"
	"github.com/motilal0/plcc-cortex-analyst/internal/storage"
	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, exec *fakeExecutor) *chat.Session {
	t.Helper()
	return chat.NewSession("s-1", exec)
}

func TestRenderMessageTextAndSuggestionKeys(t *testing.T) {
	session := newTestSession(t, &fakeExecutor{})
	for i := 0; i < 3; i++ {
		session.Append(chat.UserMessage("filler"))
	}
	session.Append(chat.AssistantMessage("req-9",
		chat.TextBlock("Here are some follow-ups."),
		chat.SuggestionsBlock("Top regions by revenue?", "Monthly trend for EMEA?"),
	))

	renderer := New(5, nil, discardLogger())
	view, err := renderer.RenderMessage(context.Background(), session, 3)
	if err != nil {
		t.Fatalf("RenderMessage() error = %v", err)
	}
	if view.Index != 3 || view.Role != chat.RoleAssistant || view.RequestID != "req-9" {
		t.Fatalf("view header = %+v", view)
	}
	if len(view.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(view.Blocks))
	}
	if view.Blocks[0].Type != chat.BlockText || view.Blocks[0].Text != "Here are some follow-ups." {
		t.Fatalf("text block = %+v", view.Blocks[0])
	}
	items := view.Blocks[1].Suggestions
	if len(items) != 2 {
		t.Fatalf("suggestion items = %d, want 2", len(items))
	}
	for i, item := range items {
		if item.MessageIndex != 3 || item.ItemIndex != i {
			t.Fatalf("item %d key = (%d,%d)", i, item.MessageIndex, item.ItemIndex)
		}
	}
}

func TestRenderMessageExecutesLimitedStatement(t *testing.T) {
	exec := &fakeExecutor{
		result: warehouse.Result{
			Columns:  []string{"region", "revenue"},
			Rows:     [][]any{{"emea", int64(1)}, {"apac", int64(2)}, {"amer", int64(3)}},
			Duration: 40 * time.Millisecond,
		},
	}
	session := newTestSession(t, exec)
	session.Append(chat.AssistantMessage("req-1", chat.SQLBlock("SELECT region, revenue FROM sales;")))

	renderer := New(2, nil, discardLogger())
	view, err := renderer.RenderMessage(context.Background(), session, 0)
	if err != nil {
		t.Fatalf("RenderMessage() error = %v", err)
	}
	wantStatement := "SELECT * FROM (SELECT region, revenue FROM sales) AS q LIMIT 3"
	if exec.lastStatement != wantStatement {
		t.Fatalf("executed statement = %q, want %q", exec.lastStatement, wantStatement)
	}

	sql := view.Blocks[0].SQL
	if sql == nil {
		t.Fatal("expected sql view")
	}
	if sql.Statement != "SELECT region, revenue FROM sales;" {
		t.Fatalf("statement = %q", sql.Statement)
	}
	if len(sql.Rows) != 2 || !sql.Truncated {
		t.Fatalf("rows = %d, truncated = %v", len(sql.Rows), sql.Truncated)
	}
	if sql.DurationMS != 40 {
		t.Fatalf("duration = %d", sql.DurationMS)
	}
	if len(sql.Exports) != 3 {
		t.Fatalf("exports = %d, want 3", len(sql.Exports))
	}
	if sql.Exports[0].Href != "/v1/sessions/s-1/messages/0/export?format=csv" {
		t.Fatalf("export href = %q", sql.Exports[0].Href)
	}
}

func TestRenderMessageReportsExecutionFailureInBlock(t *testing.T) {
	exec := &fakeExecutor{err: &warehouse.QueryError{Statement: "SELECT nope", Err: errors.New("relation does not exist")}}
	session := newTestSession(t, exec)
	session.Append(chat.AssistantMessage("req-1", chat.SQLBlock("SELECT nope")))

	renderer := New(5, nil, discardLogger())
	view, err := renderer.RenderMessage(context.Background(), session, 0)
	if err != nil {
		t.Fatalf("RenderMessage() error = %v", err)
	}
	sql := view.Blocks[0].SQL
	if sql.Error == "" || !strings.Contains(sql.Error, "relation does not exist") {
		t.Fatalf("sql error = %q", sql.Error)
	}
	if len(sql.Rows) != 0 || len(sql.Exports) != 0 {
		t.Fatalf("failed block carries table data: %+v", sql)
	}
}

func TestRenderMessageNotFound(t *testing.T) {
	session := newTestSession(t, &fakeExecutor{})
	renderer := New(5, nil, discardLogger())
	if _, err := renderer.RenderMessage(context.Background(), session, 0); err != ErrMessageNotFound {
		t.Fatalf("error = %v, want ErrMessageNotFound", err)
	}
}

func TestExportResultEncodesFullResultAndArchives(t *testing.T) {
	exec := &fakeExecutor{
		result: warehouse.Result{
			Columns: []string{"region", "revenue"},
			Rows:    [][]any{{"emea", int64(1)}, {"apac", int64(2)}, {"amer", int64(3)}},
		},
	}
	session := newTestSession(t, exec)
	session.Append(chat.AssistantMessage("req-1", chat.SQLBlock("SELECT region, revenue FROM sales;")))

	store := &fakeStore{objects: map[string][]byte{}}
	renderer := New(1, archive.New(store, discardLogger()), discardLogger())

	payload, err := renderer.ExportResult(context.Background(), session, 0, export.FormatCSV)
	if err != nil {
		t.Fatalf("ExportResult() error = %v", err)
	}
	if exec.lastStatement != "SELECT region, revenue FROM sales" {
		t.Fatalf("export must not cap rows, executed %q", exec.lastStatement)
	}

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("csv records = %d, want header + 3 rows", len(records))
	}
	if len(store.objects) != 3 {
		t.Fatalf("archived objects = %d, want 3", len(store.objects))
	}
	if _, ok := store.objects["sessions/s-1/messages/0/query_results.parquet"]; !ok {
		t.Fatal("missing archived parquet object")
	}
}

func TestExportResultErrors(t *testing.T) {
	session := newTestSession(t, &fakeExecutor{})
	session.Append(chat.AssistantMessage("req-1", chat.TextBlock("no table here")))

	renderer := New(5, nil, discardLogger())
	if _, err := renderer.ExportResult(context.Background(), session, 0, export.FormatCSV); err != ErrNoResult {
		t.Fatalf("error = %v, want ErrNoResult", err)
	}
	if _, err := renderer.ExportResult(context.Background(), session, 9, export.FormatCSV); err != ErrMessageNotFound {
		t.Fatalf("error = %v, want ErrMessageNotFound", err)
	}

	failing := &fakeExecutor{err: &warehouse.QueryError{Statement: "SELECT 1", Err: errors.New("connection reset")}}
	failingSession := newTestSession(t, failing)
	failingSession.Append(chat.AssistantMessage("req-2", chat.SQLBlock("SELECT 1")))
	var queryErr *warehouse.QueryError
	if _, err := New(5, nil, discardLogger()).ExportResult(context.Background(), failingSession, 0, export.FormatCSV); !errors.As(err, &queryErr) {
		t.Fatalf("error = %v, want *warehouse.QueryError", err)
	}
}

func TestSuggestionPrompt(t *testing.T) {
	message := chat.AssistantMessage("req-1",
		chat.SuggestionsBlock("first", "second"),
		chat.TextBlock("between"),
		chat.SuggestionsBlock("third"),
	)

	cases := []struct {
		index  int
		prompt string
		ok     bool
	}{
		{0, "first", true},
		{1, "second", true},
		{2, "third", true},
		{3, "", false},
		{-1, "", false},
	}
	for _, tc := range cases {
		prompt, ok := SuggestionPrompt(message, tc.index)
		if prompt != tc.prompt || ok != tc.ok {
			t.Fatalf("SuggestionPrompt(%d) = %q/%v, want %q/%v", tc.index, prompt, ok, tc.prompt, tc.ok)
		}
	}
}

type fakeExecutor struct {
	result        warehouse.Result
	err           error
	lastStatement string
}

func (f *fakeExecutor) Execute(_ context.Context, statement string) (warehouse.Result, error) {
	f.lastStatement = statement
	if f.err != nil {
		return warehouse.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeExecutor) Close() error { return nil }

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, size int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.objects[key] = payload
	return storage.ObjectInfo{Key: key, Size: size}, nil
}

func (f *fakeStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, storage.ErrObjectNotFound
}

func (f *fakeStore) Delete(_ context.Context, _ string) error { return nil }

func (f *fakeStore) DeletePrefix(_ context.Context, _ string) error { return nil }
