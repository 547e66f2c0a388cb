package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/goflux/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "history"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

func (s *SQLiteStore) JobDispatched(ctx context.Context, exec model.Execution) error {
	s.logger.Debug("sql", "op", "insert", "table", "executions", "id", exec.ID)

	ordered := 0
	if exec.Workload.Ordered {
		ordered = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, source_id, seq, executor_type, ordered, signature, state, output, stderr, exit_code, error, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		exec.ID, uint64(exec.SourceID), exec.Seq, string(exec.ExecutorType), ordered, string(exec.Workload.Signature),
		string(model.ExecutionStateRunning), "", "", 0, "",
		exec.StartedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) JobCompleted(ctx context.Context, execID string, c model.Completion) error {
	s.logger.Debug("sql", "op", "update", "table", "executions", "id", execID)

	state := model.ExecutionStateSuccess
	if c.Failed() {
		state = model.ExecutionStateFailed
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE executions SET state = ?, output = ?, stderr = ?, exit_code = ?, error = ?, completed_at = ?
		 WHERE id = ?`,
		string(state), c.Details.Output, c.Details.Stderr, c.Details.ExitCode, c.Details.Err,
		time.Now().UTC().Format(time.RFC3339Nano), execID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("execution %s not found", execID)
	}
	return nil
}

const executionColumns = `id, source_id, seq, executor_type, ordered, signature, state, output, stderr, exit_code, error, started_at, completed_at`

func (s *SQLiteStore) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	s.logger.Debug("sql", "op", "select", "table", "executions", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE id = ?`, id)

	exec, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return exec, nil
}

func (s *SQLiteStore) ListExecutions(ctx context.Context, opts model.ListOptions) ([]*model.Execution, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "executions", "state", opts.State, "source", opts.SourceID)

	var conds []string
	var args []any
	if opts.State != "" {
		conds = append(conds, "state = ?")
		args = append(args, opts.State)
	}
	if opts.SourceID != "" {
		id, err := model.ParseSourceID(opts.SourceID)
		if err != nil {
			return nil, 0, fmt.Errorf("source filter: %w", err)
		}
		conds = append(conds, "source_id = ?")
		args = append(args, uint64(id))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM executions`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+executionColumns+` FROM executions`+where+
			` ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var execs []*model.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, 0, err
		}
		execs = append(execs, exec)
	}
	return execs, total, rows.Err()
}

func (s *SQLiteStore) ListExecutionsAfter(ctx context.Context, cursor int64) ([]*model.Execution, int64, error) {
	s.logger.Debug("sql", "op", "list_after", "table", "executions", "cursor", cursor)

	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, `+executionColumns+` FROM executions WHERE rowid > ? ORDER BY rowid ASC`,
		cursor,
	)
	if err != nil {
		return nil, cursor, err
	}
	defer rows.Close()

	var execs []*model.Execution
	next := cursor
	for rows.Next() {
		exec, rowID, err := scanExecutionWithRowID(rows)
		if err != nil {
			return nil, cursor, err
		}
		execs = append(execs, exec)
		next = rowID
	}
	return execs, next, rows.Err()
}

func (s *SQLiteStore) CountBySource(ctx context.Context, id model.SourceID) (int, error) {
	s.logger.Debug("sql", "op", "count", "table", "executions", "source", id)

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM executions WHERE source_id = ?`, uint64(id),
	).Scan(&n)
	return n, err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(sc scanner) (*model.Execution, error) {
	exec, _, err := scan(sc, false)
	return exec, err
}

func scanExecutionWithRowID(sc scanner) (*model.Execution, int64, error) {
	return scan(sc, true)
}

func scan(sc scanner, withRowID bool) (*model.Execution, int64, error) {
	var exec model.Execution
	var rowID int64
	var sourceID uint64
	var executorType, signature, state string
	var ordered int
	var startedAt string
	var completedAt sql.NullString

	dest := []any{&exec.ID, &sourceID, &exec.Seq, &executorType, &ordered, &signature,
		&state, &exec.Details.Output, &exec.Details.Stderr, &exec.Details.ExitCode, &exec.Details.Err,
		&startedAt, &completedAt}
	if withRowID {
		dest = append([]any{&rowID}, dest...)
	}
	if err := sc.Scan(dest...); err != nil {
		return nil, 0, err
	}

	exec.SourceID = model.SourceID(sourceID)
	exec.ExecutorType = model.ExecutorType(executorType)
	exec.Workload = model.Workload{Ordered: ordered != 0, Signature: model.Signature(signature)}
	exec.State = model.ExecutionState(state)
	exec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err == nil {
			exec.CompletedAt = &t
		}
	}
	return &exec, rowID, nil
}
