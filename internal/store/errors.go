package store

import "codeberg.org/mutker/vitalsd/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig     = errors.ErrInvalidConfig
	ErrUnsupportedDriver = errors.ErrorCode("store_unsupported_driver")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("store_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("store_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("store_schema_migration_failed")
	ErrSchemaTooNew           = errors.ErrorCode("store_schema_too_new")
	ErrTransactionFailed      = errors.ErrorCode("store_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("store_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Record Errors
	ErrNotFound      = errors.ErrResourceNotFound
	ErrConfigMissing = errors.ErrConfigMissing
	ErrInvalidRecord = errors.ErrValidation
	ErrUnknownKind   = errors.ErrorCode("store_unknown_kind")
	ErrInvalidRole   = errors.ErrorCode("store_invalid_role")
)
