package warehouse

import (
	"context"
	"fmt"
	"time"
)

// Result is one executed statement's tabular output: named columns in
// statement order and one row slice per result row.
type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Executor runs a single SQL statement against the warehouse.
type Executor interface {
	Execute(ctx context.Context, statement string) (Result, error)
}

// QueryError reports a statement the warehouse rejected or failed to run.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// ConnectionParams carries everything needed to reach the warehouse. The
// DSN holds account, user, secret, and database for the selected driver.
type ConnectionParams struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// CredentialProvider supplies connection parameters from the embedding
// environment. Implementations must not read plaintext credential files.
type CredentialProvider interface {
	ConnectionParams(ctx context.Context) (ConnectionParams, error)
}

type StaticCredentials ConnectionParams

func (s StaticCredentials) ConnectionParams(context.Context) (ConnectionParams, error) {
	return ConnectionParams(s), nil
}
