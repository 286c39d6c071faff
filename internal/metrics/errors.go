package metrics

import "codeberg.org/mutker/nepcollector/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("metrics_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("metrics_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("metrics_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("metrics_schema_migration_failed")

	// Storage Errors
	ErrStoreUnavailable = errors.ErrorCode("metrics_store_unavailable")
	ErrStorageAccess    = errors.ErrorCode("metrics_storage_access_failed")
	ErrStorageInit      = errors.ErrInitFailed
	ErrStorageClose     = errors.ErrShutdownFailed

	// Input Errors
	ErrInvalidMetric = errors.ErrorCode("metrics_invalid_metric")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
