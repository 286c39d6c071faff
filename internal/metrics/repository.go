package metrics

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/logger"
	"codeberg.org/mutker/nepcollector/internal/series"
	"github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	loc    *time.Location
	mu     sync.Mutex
	closed bool
}

// NewRepository opens (creating if needed) the SQLite metrics database at
// cfg.DBPath and brings its schema up to date.
func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, fmt.Errorf("create directory %s: %w", filepath.Dir(cfg.DBPath), err))
	}

	dsn := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=%d", cfg.DBPath, defaultBusyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStoreUnavailable, err)
	}

	if err := probe(db); err != nil {
		db.Close()
		return nil, classify(err)
	}

	if err := ValidateAndUpdateSchema(db, cfg, log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Metrics repository initialized")

	return &repository{
		db:     db,
		logger: log,
		loc:    cfg.location(),
	}, nil
}

// probe forces the driver to open and read the database file.
func probe(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return err
	}
	var version int
	return db.QueryRow("PRAGMA schema_version").Scan(&version)
}

func (r *repository) Put(ctx context.Context, point series.Point) (Outcome, error) {
	errFactory := errors.New()

	if point.Watt < 0 {
		return 0, errFactory.WithData(ErrInvalidMetric, point.Watt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errFactory.WithMessage(ErrStoreUnavailable, "metrics repository is closed")
	}

	ts := FormatTime(point.Timestamp, r.loc)
	res, err := r.db.ExecContext(ctx, insertMetricSQL, ts, point.Watt)
	if err != nil {
		return 0, classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err)
	}

	if n == 0 {
		r.logger.Debug().Str("time", ts).Int64("watt", point.Watt).Msg("Metric already stored")
		return AlreadyPresent, nil
	}

	r.logger.Debug().Str("time", ts).Int64("watt", point.Watt).Msg("Metric stored")
	return Inserted, nil
}

func (r *repository) List(ctx context.Context) ([]StoredMetric, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errFactory.WithMessage(ErrStoreUnavailable, "metrics repository is closed")
	}

	rows, err := r.db.QueryContext(ctx, listMetricsSQL)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var metrics []StoredMetric
	for rows.Next() {
		var m StoredMetric
		if err := rows.Scan(&m.ID, &m.Time, &m.Watt); err != nil {
			return nil, classify(err)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return metrics, nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to checkpoint WAL")
	}

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	r.logger.Debug().Msg("Metrics repository closed")

	return nil
}

// classify sorts driver errors into errors that mean the store as a whole is
// gone and errors confined to the statement at hand.
func classify(err error) error {
	errFactory := errors.New()

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errFactory.Wrap(ErrOperationTimeout, err)
	case isUnavailable(err):
		return errFactory.Wrap(ErrStoreUnavailable, err)
	default:
		return errFactory.Wrap(ErrStorageAccess, err)
	}
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code {
	case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrNotADB, sqlite3.ErrCorrupt,
		sqlite3.ErrFull, sqlite3.ErrReadonly, sqlite3.ErrPerm:
		return true
	default:
		return false
	}
}
