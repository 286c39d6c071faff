package nepviewer

import "codeberg.org/mutker/nepcollector/internal/errors"

const (
	// Input Errors
	ErrMissingCredentials = errors.ErrorCode("nepviewer_missing_credentials")
	ErrMissingSerial      = errors.ErrorCode("nepviewer_missing_serial")

	// Transport Errors
	ErrRequestFailed    = errors.ErrorCode("nepviewer_request_failed")
	ErrUnexpectedStatus = errors.ErrorCode("nepviewer_unexpected_status")

	// Response Errors
	ErrLoginRejected = errors.ErrorCode("nepviewer_login_rejected")
	ErrDecodeFailed  = errors.ErrorCode("nepviewer_decode_failed")
)

// statusData is attached to ErrUnexpectedStatus errors.
type statusData struct {
	URL    string
	Status int
}
