package simulation

import "codeberg.org/mutker/vitalsd/internal/errors"

const (
	ErrConfigMissing   = errors.ErrConfigMissing
	ErrInvalidConfig   = errors.ErrorCode("simulation_invalid_config")
	ErrListUsersFailed = errors.ErrorCode("simulation_list_users_failed")
	ErrGenerateFailed  = errors.ErrorCode("simulation_generate_failed")
)
