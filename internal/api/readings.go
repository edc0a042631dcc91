package api

import (
	"encoding/json"
	"net/http"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/metric"
)

const maxBodyBytes = 64 << 10

// handleCreateReading accepts a manually entered reading. The user comes
// from the path and must exist. The source defaults to manual.
func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	kind, err := kindVar(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.users.GetUser(r.Context(), userID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	reading, _ := metric.New(kind)

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(reading); err != nil {
		s.writeError(w, r, errors.New().WithMessage(ErrInvalidBody, err.Error()))
		return
	}

	h := reading.Header()
	h.ID = ""
	h.UserID = userID(r)
	if h.Source == "" {
		h.Source = metric.SourceManual
	}
	if h.Timestamp.IsZero() {
		h.Timestamp = s.now().UTC()
	}

	if err := s.readings.Create(r.Context(), reading); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.publisher.Publish(r.Context(), reading); err != nil {
		s.logger.Warn().
			Str("user_id", h.UserID).
			Str("kind", string(kind)).
			Err(err).
			Msg("Failed to publish reading")
	}

	writeJSON(w, http.StatusCreated, reading)
}
