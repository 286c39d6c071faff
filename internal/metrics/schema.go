package metrics

import (
	"database/sql"
	"fmt"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/logger"
)

const (
	// SchemaVersion 1 is the metrics table without a uniqueness guarantee;
	// version 2 adds the unique (time, watt) index.
	SchemaVersion = 2

	// SQL statements derived from schema
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS metrics (
	       id    INTEGER PRIMARY KEY AUTOINCREMENT,
	       time  TEXT NOT NULL,
	       watt  INTEGER NOT NULL CHECK (typeof(watt) = 'integer')
	   );
	   CREATE UNIQUE INDEX IF NOT EXISTS idx_metrics_time_watt ON metrics (time, watt);`

	insertMetricSQL = `
    INSERT INTO metrics (time, watt)
    VALUES (?, ?)
    ON CONFLICT (time, watt) DO NOTHING`

	listMetricsSQL = `
    SELECT id, time, watt
    FROM metrics
    ORDER BY time, watt, id`

	recordVersionSQL = `
    INSERT INTO schema_versions (version, applied_at)
    VALUES (?, datetime('now'))`
)

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				if !errors.Is(err, sql.ErrTxDone) {
					log.Debug().Err(err).Msg("Failed to rollback transaction")
				}
			}
		}
	}()

	log.Debug().Str("sql", createTablesSQL).Msg("Executing SQL statement")
	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if _, err := tx.Exec(recordVersionSQL, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the current schema version. A metrics table
// without version bookkeeping is a version 1 database; an empty database is
// version 0.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, err
	}
	if !exists {
		legacy, err := TableExists(db, "metrics")
		if err != nil {
			return 0, err
		}
		if legacy {
			return 1, nil
		}
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, fmt.Errorf("get version: %w", err))
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().Wrap(ErrSchemaValidationFailed, fmt.Errorf("check table %s: %w", tableName, err))
	}
	return exists, nil
}
