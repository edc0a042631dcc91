package analytics

import "codeberg.org/mutker/vitalsd/internal/errors"

const (
	ErrInvalidParameter = errors.ErrInvalidParameter

	ErrQueryFailed = errors.ErrorCode("analytics_query_failed")
	ErrUnknownKind = errors.ErrorCode("analytics_unknown_kind")
)
