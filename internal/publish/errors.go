package publish

import "codeberg.org/mutker/vitalsd/internal/errors"

const (
	ErrInvalidConfig      = errors.ErrInvalidConfig
	ErrUnsupportedBackend = errors.ErrorCode("publish_unsupported_backend")
	ErrConnectFailed      = errors.ErrorCode("publish_connect_failed")
	ErrEncodeFailed       = errors.ErrorCode("publish_encode_failed")
	ErrPublishFailed      = errors.ErrorCode("publish_failed")
	ErrCloseFailed        = errors.ErrShutdownFailed
)
