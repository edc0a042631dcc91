package api

import "codeberg.org/mutker/vitalsd/internal/errors"

const (
	ErrInvalidParameter = errors.ErrInvalidParameter
	ErrInvalidBody      = errors.ErrorCode("api_invalid_body")
	ErrUnknownKind      = errors.ErrorCode("api_unknown_kind")
)
