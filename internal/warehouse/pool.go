package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/motilal0/plcc-cortex-analyst/internal/observability"
)

// Pool wraps the process-wide database handle. Individual sessions pin one
// connection each via Acquire; the pool only bounds the total.
type Pool struct {
	db           *sql.DB
	queryTimeout time.Duration
}

func Open(ctx context.Context, provider CredentialProvider) (*Pool, error) {
	if provider == nil {
		return nil, fmt.Errorf("credential provider is required")
	}
	params, err := provider.ConnectionParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve connection params: %w", err)
	}

	switch params.Driver {
	case "pgx":
		if strings.TrimSpace(params.DSN) == "" {
			return nil, fmt.Errorf("warehouse dsn is required for driver %q", params.Driver)
		}
	case "duckdb":
		// empty DSN means an in-memory database, which is fine for dev
	default:
		return nil, fmt.Errorf("unsupported warehouse driver: %q", params.Driver)
	}

	db, err := sql.Open(params.Driver, params.DSN)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if params.MaxOpenConns > 0 {
		db.SetMaxOpenConns(params.MaxOpenConns)
	}
	if params.MaxIdleConns > 0 {
		db.SetMaxIdleConns(params.MaxIdleConns)
	}
	if params.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(params.ConnMaxIdleTime)
	}
	if params.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(params.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	return NewPoolWithDB(db, params.QueryTimeout), nil
}

// NewPoolWithDB wraps an already-open handle. Used by tests and by callers
// that manage the handle themselves.
func NewPoolWithDB(db *sql.DB, queryTimeout time.Duration) *Pool {
	return &Pool{db: db, queryTimeout: queryTimeout}
}

// Acquire pins one connection for a session. The caller owns the returned
// Conn and must Close it when the session ends.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire warehouse connection: %w", err)
	}
	return &Conn{conn: conn, queryTimeout: p.queryTimeout}, nil
}

func (p *Pool) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	return p.db.Close()
}

// Conn is one session's pinned warehouse connection. All queries of a
// session run on it sequentially for the session's lifetime.
type Conn struct {
	conn         *sql.Conn
	queryTimeout time.Duration
}

func (c *Conn) Execute(ctx context.Context, statement string) (Result, error) {
	if strings.TrimSpace(statement) == "" {
		return Result{}, &QueryError{Statement: statement, Err: fmt.Errorf("statement is required")}
	}
	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := c.conn.QueryContext(ctx, statement)
	if err != nil {
		return Result{}, &QueryError{Statement: statement, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, &QueryError{Statement: statement, Err: err}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, &QueryError{Statement: statement, Err: err}
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, &QueryError{Statement: statement, Err: err}
	}

	elapsed := time.Since(start)
	observability.ObserveQueryExecution(elapsed)
	return Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: elapsed,
	}, nil
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
