package history

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/dotboot/pkg/errors"
	"github.com/arthur-debert/dotboot/pkg/logging"
	"github.com/arthur-debert/dotboot/pkg/pipeline"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// fixed width so started_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded bootstrap run.
type Run struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	DryRun   bool
	ExitCode int
	Stages   []Stage
}

// Stage is one recorded stage outcome.
type Stage struct {
	Name     string
	Optional bool
	Status   pipeline.Status
	Detail   string
	Error    string
	Code     string
	Duration time.Duration
}

// Store is the run ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating when needed) the ledger at path and applies
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New(errors.ErrInvalidInput, "history database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(path))
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to open history database").
			WithDetail("path", path)
	}
	// a single writer; also keeps ":memory:" to one database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to ping history database").
			WithDetail("path", path)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger := logging.FromContext(ctx, "history")
	logger.Debug().Str("path", path).Msg("History ledger opened")
	return s, nil
}

func (s *Store) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to read embedded migrations")
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, errors.ErrHistory, "failed to create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, errors.ErrHistory, "failed to create migration instance")
	}
	// m.Close would close the shared *sql.DB
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrHistory, "failed to migrate history database")
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a run report and its stages in one transaction.
func (s *Store) Record(ctx context.Context, report pipeline.Report) error {
	if report.RunID == "" {
		return errors.New(errors.ErrInvalidInput, "run report has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrHistory, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, duration_ns, dry_run, exit_code)
		VALUES (?, ?, ?, ?, ?)
	`,
		report.RunID,
		report.Started.UTC().Format(timeLayout),
		int64(report.Duration),
		report.DryRun,
		report.ExitCode,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrHistory, "failed to record run").
			WithDetail("run_id", report.RunID)
	}

	for i, st := range report.Stages {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stages (run_id, position, name, optional, status, detail, error, code, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			report.RunID, i, st.Name, st.Optional, string(st.Status),
			st.Detail, st.Error, st.Code, int64(st.Duration),
		)
		if err != nil {
			return errors.Wrapf(err, errors.ErrHistory, "failed to record stage %s", st.Name).
				WithDetail("run_id", report.RunID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrHistory, "failed to commit run")
	}
	return nil
}

// Recent returns up to limit runs, newest first, with their stages.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ns, dry_run, exit_code
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to list runs")
	}

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, errors.Wrap(err, errors.ErrHistory, "error iterating runs")
	}
	_ = rows.Close()

	for i := range runs {
		stages, err := s.stages(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Stages = stages
	}
	return runs, nil
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, duration_ns, dry_run, exit_code
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Newf(errors.ErrHistory, "run not found: %s", id).WithDetail("run_id", id)
	}
	if err != nil {
		return Run{}, err
	}
	run.Stages, err = s.stages(ctx, id)
	return run, err
}

func (s *Store) stages(ctx context.Context, runID string) ([]Stage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, optional, status, detail, error, code, duration_ns
		FROM stages
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "failed to list stages")
	}
	defer rows.Close()

	var out []Stage
	for rows.Next() {
		var st Stage
		var status string
		var dur int64
		if err := rows.Scan(&st.Name, &st.Optional, &status, &st.Detail, &st.Error, &st.Code, &dur); err != nil {
			return nil, errors.Wrap(err, errors.ErrHistory, "failed to scan stage")
		}
		st.Status = pipeline.Status(status)
		st.Duration = time.Duration(dur)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "error iterating stages")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var started string
	var dur int64
	if err := sc.Scan(&run.ID, &started, &dur, &run.DryRun, &run.ExitCode); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, errors.Wrap(err, errors.ErrHistory, "failed to scan run")
	}
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return Run{}, errors.Wrapf(err, errors.ErrHistory, "bad start time for run %s", run.ID)
	}
	run.Started = t
	run.Duration = time.Duration(dur)
	return run, nil
}

// Failed returns the fatal stage of a recorded run, if any.
func (r Run) Failed() (Stage, bool) {
	for _, st := range r.Stages {
		if st.Status == pipeline.StatusFailed {
			return st, true
		}
	}
	return Stage{}, false
}
