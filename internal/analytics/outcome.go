package analytics

import "encoding/json"

const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
)

// Outcome is the result of an analytic computation: either a value or an
// explicit insufficient-data signal, never a silent zero.
type Outcome[T any] struct {
	value   T
	ok      bool
	message string
}

func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, ok: true}
}

func Insufficient[T any](message string) Outcome[T] {
	return Outcome[T]{message: message}
}

// Value returns the result and whether there was enough data to compute it.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.ok
}

func (o Outcome[T]) IsOK() bool {
	return o.ok
}

// Message explains why no value was produced. Empty for Ok outcomes.
func (o Outcome[T]) Message() string {
	return o.message
}

func (o Outcome[T]) MarshalJSON() ([]byte, error) {
	if o.ok {
		return json.Marshal(struct {
			Status string `json:"status"`
			Result T      `json:"result"`
		}{StatusOK, o.value})
	}
	return json.Marshal(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{StatusInsufficientData, o.message})
}
