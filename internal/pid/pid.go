package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/nepcollector/internal/errors"
)

const (
	pidFile = "nepcollector.pid"
)

// Path returns the PID file location inside dir. An empty dir means the
// system temporary directory.
func Path(dir string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, pidFile)
}

// Write writes the current process ID to the PID file in dir. It fails with
// ErrAlreadyRunning while the process named in an existing file is alive.
func Write(dir string) error {
	errFactory := errors.New()
	pid := os.Getpid()
	path := Path(dir)

	if _, err := os.Stat(path); err == nil {
		// PID file exists, check if the process is running
		bytes, err := os.ReadFile(path)
		if err != nil {
			return errFactory.Wrap(errors.ErrInternal, err)
		}

		if running(strings.TrimSpace(string(bytes))) {
			return errFactory.WithData(errors.ErrAlreadyRunning, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// running reports whether the process with the given ID exists. Garbage in
// the file counts as a stale lock.
func running(content string) bool {
	pid, err := strconv.Atoi(content)
	if err != nil || pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}

// Remove removes the PID file in dir.
func Remove(dir string) error {
	errFactory := errors.New()
	path := Path(dir)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}
