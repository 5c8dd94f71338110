package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// DefaultRecentLimit caps Recent when no positive limit is given.
const DefaultRecentLimit = 50

type dialect struct {
	name       string
	ddl        string
	dollarArgs bool
}

var postgresDialect = dialect{
	name:       DriverPostgres,
	dollarArgs: true,
	ddl: `CREATE TABLE IF NOT EXISTS extraction_runs (
	id             UUID PRIMARY KEY,
	filename       TEXT NOT NULL,
	mime_type      TEXT NOT NULL DEFAULT '',
	content_sha256 TEXT NOT NULL,
	method         TEXT NOT NULL,
	model_used     BOOLEAN NOT NULL DEFAULT FALSE,
	model_error    TEXT NOT NULL DEFAULT '',
	states         JSONB NOT NULL,
	fields         JSONB NOT NULL,
	sources        JSONB NOT NULL,
	duration_ms    BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS extraction_runs_created_at_idx ON extraction_runs (created_at DESC);`,
}

var sqliteDialect = dialect{
	name: DriverSQLite,
	ddl: `CREATE TABLE IF NOT EXISTS extraction_runs (
	id             TEXT PRIMARY KEY,
	filename       TEXT NOT NULL,
	mime_type      TEXT NOT NULL DEFAULT '',
	content_sha256 TEXT NOT NULL,
	method         TEXT NOT NULL,
	model_used     BOOLEAN NOT NULL DEFAULT 0,
	model_error    TEXT NOT NULL DEFAULT '',
	states         TEXT NOT NULL,
	fields         TEXT NOT NULL,
	sources        TEXT NOT NULL,
	duration_ms    INTEGER NOT NULL,
	created_at     DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS extraction_runs_created_at_idx ON extraction_runs (created_at DESC);`,
}

// rebind turns ? placeholders into $n for drivers that need them.
func (d dialect) rebind(q string) string {
	if !d.dollarArgs {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RunRepository stores extraction runs for later review and tuning.
type RunRepository struct {
	db      *sql.DB
	dialect dialect
	closers []func() error
	logger  *slog.Logger
}

func newRunRepository(db *sql.DB, d dialect, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, dialect: d, logger: logger}
}

func (r *RunRepository) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(r.dialect.ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			r.logger.Error("run log migration failed", "driver", r.dialect.name, "error", err)
			return fmt.Errorf("%w: migrate: %w", common.ErrDatabase, err)
		}
	}
	return nil
}

const runColumns = `id, filename, mime_type, content_sha256, method, model_used, model_error, states, fields, sources, duration_ms, created_at`

// Save inserts run, assigning an id and timestamp when missing.
func (r *RunRepository) Save(ctx context.Context, run *entity.ExtractionRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	} else if _, err := uuid.Parse(run.ID); err != nil {
		return common.NewAppError("INVALID_RUN_ID", "run id must be a uuid", common.ErrInvalidInput)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	states, err := json.Marshal(nonNil(run.States))
	if err != nil {
		return fmt.Errorf("%w: encode states: %w", common.ErrInternal, err)
	}
	fields, err := json.Marshal(run.Fields)
	if err != nil {
		return fmt.Errorf("%w: encode fields: %w", common.ErrInternal, err)
	}
	sources, err := json.Marshal(nonNilMap(run.Sources))
	if err != nil {
		return fmt.Errorf("%w: encode sources: %w", common.ErrInternal, err)
	}

	q := r.dialect.rebind(`INSERT INTO extraction_runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, q,
		run.ID, run.Filename, run.MIMEType, run.ContentSHA256, run.Method, run.ModelUsed, run.ModelError,
		string(states), string(fields), string(sources), run.DurationMS, run.CreatedAt,
	)
	if err != nil {
		r.logger.Error("extraction run save failed", "run_id", run.ID, "error", err)
		return fmt.Errorf("%w: save run: %w", common.ErrDatabase, err)
	}
	r.logger.Debug("extraction run saved", "run_id", run.ID, "filename", run.Filename)
	return nil
}

// Get returns one run. Unknown ids wrap common.ErrNotFound.
func (r *RunRepository) Get(ctx context.Context, id string) (*entity.ExtractionRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: run %s", common.ErrNotFound, id)
	}
	q := r.dialect.rebind(`SELECT ` + runColumns + ` FROM extraction_runs WHERE id = ?`)
	run, err := scanRun(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get run: %w", common.ErrDatabase, err)
	}
	return run, nil
}

// Recent returns the newest runs first.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]*entity.ExtractionRun, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	q := r.dialect.rebind(`SELECT ` + runColumns + ` FROM extraction_runs ORDER BY created_at DESC, id LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.ExtractionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan run: %w", common.ErrDatabase, err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list runs: %w", common.ErrDatabase, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.ExtractionRun, error) {
	var (
		run                     entity.ExtractionRun
		states, fields, sources []byte
	)
	err := s.Scan(&run.ID, &run.Filename, &run.MIMEType, &run.ContentSHA256, &run.Method, &run.ModelUsed,
		&run.ModelError, &states, &fields, &sources, &run.DurationMS, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(states, &run.States); err != nil {
		return nil, fmt.Errorf("decode states: %w", err)
	}
	if err := json.Unmarshal(fields, &run.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(sources, &run.Sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if len(run.Sources) == 0 {
		run.Sources = nil
	}
	run.CreatedAt = run.CreatedAt.UTC()
	return &run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]entity.FieldSource) map[string]entity.FieldSource {
	if m == nil {
		return map[string]entity.FieldSource{}
	}
	return m
}
