package main

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/nepcollector/internal/collector"
	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/metrics"
	"codeberg.org/mutker/nepcollector/internal/nepviewer"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	errFactory := errors.New()
	cause := fmt.Errorf("cause")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"auth", errFactory.Wrap(collector.ErrAuthFailed, errFactory.New(nepviewer.ErrLoginRejected)), exitAuth},
		{"fetch", errFactory.Wrap(collector.ErrFetchFailed, cause), exitFetch},
		{"persist", errFactory.Wrap(collector.ErrPersistFailed, errFactory.Wrap(metrics.ErrStoreUnavailable, cause)), exitPersist},
		{"store", errFactory.Wrap(metrics.ErrStoreUnavailable, cause), exitPersist},
		{"cancelled", errFactory.Wrap(collector.ErrOperationTimeout, cause), exitInternal},
		{"plain", cause, exitInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
