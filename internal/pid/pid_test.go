package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Write(dir))

	content, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(content))

	require.NoError(t, Remove(dir))
	_, err = os.Stat(Path(dir))
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine
	assert.NoError(t, Remove(dir))
}

func TestWriteWhileRunning(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir))
	defer Remove(dir)

	err := Write(dir)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteStaleFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "not a pid"},
		{"empty", ""},
		{"dead process", "2147483646"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(Path(dir), []byte(tt.content), 0o600))

			require.NoError(t, Write(dir))
			content, err := os.ReadFile(Path(dir))
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(os.Getpid()), string(content))
		})
	}
}

func TestPathDefaultsToTempDir(t *testing.T) {
	assert.Equal(t, filepath.Join(os.TempDir(), "nepcollector.pid"), Path(""))
}
