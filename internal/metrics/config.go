package metrics

import (
	"time"

	"codeberg.org/mutker/nepcollector/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm   = 0o755
	defaultDBPath    = "/var/lib/nepcollector/metrics.db"
	defaultBackupDir = "/var/lib/nepcollector/backups"

	// Milliseconds a writer waits for a concurrent writer before giving up
	defaultBusyTimeout = 5000

	// TimeLayout is how timestamps are stored in the time column.
	TimeLayout = "2006-01-02 15:04:05"
)

type Config struct {
	DBPath          string
	BackupDir       string
	BackupOnMigrate bool
	// Location is the zone stored timestamps are written in. Nil means the
	// local zone.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		DBPath:          defaultDBPath,
		BackupDir:       defaultBackupDir,
		BackupOnMigrate: true,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BackupOnMigrate && c.BackupDir == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "backup directory required when backup on migrate is enabled")
	}
	return nil
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// FormatTime renders t the way it is stored in the time column.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(TimeLayout)
}
