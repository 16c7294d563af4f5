package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestConnExecuteReturnsColumnsAndRows(t *testing.T) {
	db, mock := newSQLMock(t)
	pool := NewPoolWithDB(db, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT region, total FROM sales`)).
		WillReturnRows(sqlmock.NewRows([]string{"region", "total"}).
			AddRow([]byte("EMEA, North"), int64(1200)).
			AddRow(nil, 7.5))

	conn, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	result, err := conn.Execute(context.Background(), "SELECT region, total FROM sales")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "region" || result.Columns[1] != "total" {
		t.Fatalf("Columns = %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("Rows = %d", len(result.Rows))
	}
	if got, ok := result.Rows[0][0].(string); !ok || got != "EMEA, North" {
		t.Fatalf("Rows[0][0] = %#v, want []byte normalized to string", result.Rows[0][0])
	}
	if result.Rows[1][0] != nil {
		t.Fatalf("Rows[1][0] = %#v, want nil", result.Rows[1][0])
	}
	assertSQLMock(t, mock)
}

func TestConnExecuteWrapsDriverError(t *testing.T) {
	db, mock := newSQLMock(t)
	pool := NewPoolWithDB(db, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT broken`)).
		WillReturnError(errors.New("syntax error at or near broken"))

	conn, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Execute(context.Background(), "SELECT broken")
	var queryErr *QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("Execute() error = %v, want *QueryError", err)
	}
	if queryErr.Statement != "SELECT broken" {
		t.Fatalf("Statement = %q", queryErr.Statement)
	}
	assertSQLMock(t, mock)
}

func TestConnExecuteRejectsEmptyStatement(t *testing.T) {
	db, _ := newSQLMock(t)
	pool := NewPoolWithDB(db, 0)

	conn, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	var queryErr *QueryError
	if _, err := conn.Execute(context.Background(), "   "); !errors.As(err, &queryErr) {
		t.Fatalf("Execute() error = %v, want *QueryError", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), StaticCredentials{Driver: "sqlite", DSN: "x"})
	if err == nil {
		t.Fatal("Open() with unknown driver should fail")
	}
}

func TestOpenRequiresDSNForPgx(t *testing.T) {
	_, err := Open(context.Background(), StaticCredentials{Driver: "pgx"})
	if err == nil {
		t.Fatal("Open() with empty pgx dsn should fail")
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
