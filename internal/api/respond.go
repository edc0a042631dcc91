package api

import (
	"encoding/json"
	"net/http"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/metric"
)

type errorBody struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Details any              `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug().Err(err).Msg("Failed to encode response")
	}
}

// statusFor maps an error code to the HTTP status returned for it.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrInvalidParameter, errors.ErrValidation, errors.ErrInvalidArgument, ErrInvalidBody:
		return http.StatusBadRequest
	case errors.ErrResourceNotFound, ErrUnknownKind:
		return http.StatusNotFound
	case errors.ErrUnavailable, errors.ErrTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Code: errors.CodeOf(err), Message: err.Error()}
	if body.Code == "" {
		body.Code = errors.ErrInternal
	}
	var ve *metric.ValidationError
	var e errors.Error
	switch {
	case errors.As(err, &ve):
		body.Details = ve
	case errors.As(err, &e):
		body.Details = e.GetData()
	}

	status := statusFor(body.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error().
			Str("path", r.URL.Path).
			Str("error_code", string(body.Code)).
			Err(err).
			Msg("Request failed")
		// internal details stay in the log
		body.Message = http.StatusText(status)
		body.Details = nil
	}

	writeJSON(w, status, struct {
		Error errorBody `json:"error"`
	}{body})
}
