package tracking

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/pkg/log"
)

// SQLiteStore is a Sink backed by a SQLite database file. Artifacts are
// copied to <artifactRoot>/<experiment id>/<run id>/artifacts/.
type SQLiteStore struct {
	db           *sql.DB
	artifactRoot string
	logger       log.Logger

	mu           sync.Mutex
	experimentID string
}

// OpenSQLite opens (or creates) the tracking database at path.
func OpenSQLite(ctx context.Context, path, artifactRoot string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.NewPersistError(path, "mkdir", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open tracking database")
	}
	// one connection: writes are serialised anyway and :memory: databases
	// are private to a connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "connect to tracking database")
	}

	s := &SQLiteStore{
		db:           db,
		artifactRoot: artifactRoot,
		logger:       log.GetLoggerWithName("tracking"),
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "initialize tracking schema")
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS experiments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		experiment_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		artifact_uri TEXT NOT NULL,
		FOREIGN KEY (experiment_id) REFERENCES experiments(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_experiment_id ON runs(experiment_id);

	CREATE TABLE IF NOT EXISTS params (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS metrics (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value REAL NOT NULL,
		timestamp INTEGER NOT NULL,
		PRIMARY KEY (run_id, key),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		run_id TEXT NOT NULL,
		path TEXT NOT NULL,
		PRIMARY KEY (run_id, path),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SetExperiment selects name, creating the experiment on first use.
func (s *SQLiteStore) SetExperiment(ctx context.Context, name string) error {
	id, err := s.experimentByName(ctx, name, true)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.experimentID = id
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) experimentByName(ctx context.Context, name string, create bool) (string, error) {
	if name == "" {
		return "", errors.NewValidationError("experiment_name", "must not be empty", name)
	}
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM experiments WHERE name = ?`, name).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", errors.Wrapf(err, "look up experiment %q", name)
	case !create:
		return "", errors.NewValueError("ListRuns", fmt.Sprintf("experiment %q does not exist", name))
	}

	id = uuid.New().String()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, time.Now().UnixMilli()); err != nil {
		return "", errors.Wrapf(err, "create experiment %q", name)
	}
	s.logger.Info("experiment created", log.ExperimentKey, name)
	return id, nil
}

// StartRun opens a run in the selected experiment.
func (s *SQLiteStore) StartRun(ctx context.Context, name string) (Run, error) {
	s.mu.Lock()
	expID := s.experimentID
	s.mu.Unlock()
	if expID == "" {
		if err := s.SetExperiment(ctx, DefaultExperiment); err != nil {
			return nil, err
		}
		return s.StartRun(ctx, name)
	}

	id := uuid.New().String()
	uri := filepath.Join(s.artifactRoot, expID, id, "artifacts")
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, experiment_id, name, status, start_time, artifact_uri) VALUES (?, ?, ?, ?, ?, ?)`,
		id, expID, name, string(StatusRunning), time.Now().UnixMilli(), uri); err != nil {
		return nil, errors.Wrap(err, "create run")
	}

	s.logger.Info("run started", log.RunIDKey, id, "run.name", name)
	return &sqliteRun{store: s, id: id, artifactURI: uri}, nil
}

// ListRuns returns the runs of experiment, newest first. An empty name lists
// the runs of every experiment.
func (s *SQLiteStore) ListRuns(ctx context.Context, experiment string) ([]RunInfo, error) {
	query := `SELECT r.id, r.name, e.name, r.status, r.start_time, r.end_time, r.artifact_uri
		FROM runs r JOIN experiments e ON e.id = r.experiment_id`
	var args []any
	if experiment != "" {
		expID, err := s.experimentByName(ctx, experiment, false)
		if err != nil {
			return nil, err
		}
		query += ` WHERE r.experiment_id = ?`
		args = append(args, expID)
	}
	query += ` ORDER BY r.start_time DESC, r.rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	var runs []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, errors.Wrap(err, "list runs")
	}
	_ = rows.Close()

	for i := range runs {
		if err := s.loadDetails(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// GetRun returns a single run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT r.id, r.name, e.name, r.status, r.start_time, r.end_time, r.artifact_uri
		FROM runs r JOIN experiments e ON e.id = r.experiment_id WHERE r.id = ?`, id)
	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewValueError("GetRun", fmt.Sprintf("run %q does not exist", id))
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadDetails(ctx, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunInfo, error) {
	var (
		info   RunInfo
		status string
		start  int64
		end    sql.NullInt64
	)
	if err := row.Scan(&info.ID, &info.Name, &info.Experiment, &status, &start, &end, &info.ArtifactURI); err != nil {
		return RunInfo{}, err
	}
	info.Status = Status(status)
	info.StartTime = time.UnixMilli(start)
	if end.Valid {
		info.EndTime = time.UnixMilli(end.Int64)
	}
	return info, nil
}

func (s *SQLiteStore) loadDetails(ctx context.Context, info *RunInfo) error {
	info.Params = map[string]string{}
	info.Metrics = map[string]float64{}

	prows, err := s.db.QueryContext(ctx, `SELECT key, value FROM params WHERE run_id = ?`, info.ID)
	if err != nil {
		return errors.Wrap(err, "load params")
	}
	for prows.Next() {
		var k, v string
		if err := prows.Scan(&k, &v); err != nil {
			_ = prows.Close()
			return errors.Wrap(err, "scan param")
		}
		info.Params[k] = v
	}
	_ = prows.Close()

	mrows, err := s.db.QueryContext(ctx, `SELECT key, value FROM metrics WHERE run_id = ?`, info.ID)
	if err != nil {
		return errors.Wrap(err, "load metrics")
	}
	for mrows.Next() {
		var k string
		var v float64
		if err := mrows.Scan(&k, &v); err != nil {
			_ = mrows.Close()
			return errors.Wrap(err, "scan metric")
		}
		info.Metrics[k] = v
	}
	_ = mrows.Close()

	arows, err := s.db.QueryContext(ctx, `SELECT path FROM artifacts WHERE run_id = ? ORDER BY path`, info.ID)
	if err != nil {
		return errors.Wrap(err, "load artifacts")
	}
	defer arows.Close()
	for arows.Next() {
		var p string
		if err := arows.Scan(&p); err != nil {
			return errors.Wrap(err, "scan artifact")
		}
		info.Artifacts = append(info.Artifacts, p)
	}
	return arows.Err()
}

type sqliteRun struct {
	store       *SQLiteStore
	id          string
	artifactURI string

	mu    sync.Mutex
	ended bool
}

func (r *sqliteRun) ID() string { return r.id }

func (r *sqliteRun) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return errors.NewValueError("tracking.Run", fmt.Sprintf("run %s has already ended", r.id))
	}
	return nil
}

func (r *sqliteRun) LogParam(ctx context.Context, key string, value any) error {
	return r.LogParams(ctx, map[string]any{key: value})
}

func (r *sqliteRun) LogParams(ctx context.Context, params map[string]any) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	for k, v := range params {
		if _, err := r.store.db.ExecContext(ctx,
			`INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)
			 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
			r.id, k, ParamString(v)); err != nil {
			return errors.Wrapf(err, "log param %q", k)
		}
	}
	return nil
}

func (r *sqliteRun) LogMetrics(ctx context.Context, metrics map[string]float64) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	for k, v := range metrics {
		if _, err := r.store.db.ExecContext(ctx,
			`INSERT INTO metrics (run_id, key, value, timestamp) VALUES (?, ?, ?, ?)
			 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp`,
			r.id, k, v, now); err != nil {
			return errors.Wrapf(err, "log metric %q", k)
		}
	}
	return nil
}

func (r *sqliteRun) LogArtifact(ctx context.Context, localPath, artifactPath string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	dir, err := cleanArtifactPath(artifactPath)
	if err != nil {
		return err
	}
	rel := filepath.Join(dir, filepath.Base(localPath))
	if err := copyFile(localPath, filepath.Join(r.artifactURI, rel)); err != nil {
		return err
	}
	return r.recordArtifact(ctx, rel)
}

func (r *sqliteRun) LogFigure(ctx context.Context, p *plot.Plot, artifactFile string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	rel, err := cleanArtifactPath(artifactFile)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := renderFigure(p, &buf); err != nil {
		return err
	}
	dst := filepath.Join(r.artifactURI, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.NewPersistError(dst, "mkdir", err)
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return errors.NewPersistError(dst, "write", err)
	}
	return r.recordArtifact(ctx, rel)
}

func (r *sqliteRun) recordArtifact(ctx context.Context, rel string) error {
	if _, err := r.store.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO artifacts (run_id, path) VALUES (?, ?)`,
		r.id, filepath.ToSlash(rel)); err != nil {
		return errors.Wrapf(err, "record artifact %q", rel)
	}
	r.store.logger.Debug("artifact logged", log.RunIDKey, r.id, log.ArtifactKey, rel)
	return nil
}

func (r *sqliteRun) End(ctx context.Context, status Status) error {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return errors.NewValueError("tracking.Run", fmt.Sprintf("run %s has already ended", r.id))
	}
	r.ended = true
	r.mu.Unlock()

	if _, err := r.store.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, end_time = ? WHERE id = ?`,
		string(status), time.Now().UnixMilli(), r.id); err != nil {
		return errors.Wrap(err, "end run")
	}
	r.store.logger.Info("run ended", log.RunIDKey, r.id, log.RunStatusKey, string(status))
	return nil
}

var _ Sink = (*SQLiteStore)(nil)
