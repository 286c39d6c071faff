package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/logger"
)

// migrations maps a schema version to the statements that bring a database
// from the previous version to it.
var migrations = map[int]string{
	2: `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   DELETE FROM metrics
	   WHERE id NOT IN (SELECT MIN(id) FROM metrics GROUP BY time, watt);
	   CREATE UNIQUE INDEX IF NOT EXISTS idx_metrics_time_watt ON metrics (time, watt);`,
}

func backupDatabase(db *sql.DB, dir string, version int, log logger.Logger) (string, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup_dir",
			Path:  dir,
			Error: err.Error(),
		})
	}

	timestamp := time.Now().UTC().Format("20060102T150405Z")
	backupPath := filepath.Join(dir, fmt.Sprintf("metrics_v%d_%s.db", version, timestamp))

	// VACUUM INTO requires no active transaction
	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup",
			Path:  backupPath,
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", backupPath).
		Int("version", version).
		Msg("Database backup created")

	return backupPath, nil
}

// ValidateAndUpdateSchema brings the database to SchemaVersion. Empty
// databases get a fresh schema; older ones are migrated in place, after a
// backup if cfg asks for one. Stored metrics are kept.
func ValidateAndUpdateSchema(db *sql.DB, cfg Config, log logger.Logger) error {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to get schema version")
		return err
	}

	log.Debug().
		Int("version", version).
		Bool("init_db", version == 0).
		Msg("Current schema version")

	switch {
	case version == 0:
		return InitSchema(db, log)
	case version == SchemaVersion:
		log.Debug().Int("version", version).Msg("Schema version is current")
		return nil
	case version > SchemaVersion:
		return errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase    string
			Found    int
			Supports int
		}{
			Phase:    "check_version",
			Found:    version,
			Supports: SchemaVersion,
		})
	}

	if cfg.BackupOnMigrate {
		if _, err := backupDatabase(db, cfg.BackupDir, version, log); err != nil {
			return err
		}
	}

	return migrate(db, version, log)
}

func migrate(db *sql.DB, from int, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				if !errors.Is(err, sql.ErrTxDone) {
					log.Debug().Err(err).Msg("Failed to rollback migration")
				}
			}
		}
	}()

	for v := from + 1; v <= SchemaVersion; v++ {
		stmt, ok := migrations[v]
		if !ok {
			return errFactory.WithMessage(ErrSchemaMigrationFailed, fmt.Sprintf("no migration to version %d", v))
		}

		log.Debug().Int("version", v).Msg("Applying migration")
		if _, err := tx.Exec(stmt); err != nil {
			return errFactory.Wrap(ErrSchemaMigrationFailed, fmt.Errorf("migrate to version %d: %w", v, err))
		}
		if _, err := tx.Exec(recordVersionSQL, v); err != nil {
			return errFactory.Wrap(ErrSchemaMigrationFailed, fmt.Errorf("record version %d: %w", v, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}
	committed = true

	log.Info().
		Int("from", from).
		Int("to", SchemaVersion).
		Msg("Schema migrated")

	return nil
}
