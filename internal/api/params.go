package api

import (
	"net/http"
	"strconv"

	"codeberg.org/mutker/vitalsd/internal/analytics"
	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"github.com/gorilla/mux"
)

func invalidParam(name string, value any, rule string) error {
	return errors.New().WithData(ErrInvalidParameter, analytics.ParamError{Name: name, Value: value, Rule: rule})
}

// intParam reads an integer query parameter, falling back to def when it
// is absent. Range checks are left to the analytics layer.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name, raw, "must be an integer")
	}
	return v, nil
}

func requiredIntParam(r *http.Request, name string) (int, error) {
	if r.URL.Query().Get(name) == "" {
		return 0, invalidParam(name, nil, "is required")
	}
	return intParam(r, name, 0)
}

func kindVar(r *http.Request) (metric.Kind, error) {
	raw := mux.Vars(r)["kind"]
	k, ok := metric.ParseKind(raw)
	if !ok {
		return "", errors.New().WithData(ErrUnknownKind, raw)
	}
	return k, nil
}
