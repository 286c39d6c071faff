package collector

import "codeberg.org/mutker/nepcollector/internal/errors"

const (
	ErrInvalidArgument = errors.ErrInvalidArgument

	// Stage Errors
	ErrAuthFailed    = errors.ErrorCode("collector_auth_failed")
	ErrFetchFailed   = errors.ErrorCode("collector_fetch_failed")
	ErrPersistFailed = errors.ErrorCode("collector_persist_failed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
