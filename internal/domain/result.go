package domain

import "fmt"

// AbsenceReason says why a fetch produced no usable value.
type AbsenceReason int

const (
	// AbsenceTransport covers connection errors, timeouts and cancellation.
	AbsenceTransport AbsenceReason = iota + 1
	// AbsenceStatus is a non-200 response.
	AbsenceStatus
	// AbsenceDecode is a body that is not valid JSON.
	AbsenceDecode
	// AbsenceShape is valid JSON missing the expected key path.
	AbsenceShape
	// AbsenceEmpty is a resolved path holding null or an empty collection.
	AbsenceEmpty
)

func (r AbsenceReason) String() string {
	switch r {
	case AbsenceTransport:
		return "transport"
	case AbsenceStatus:
		return "status"
	case AbsenceDecode:
		return "decode"
	case AbsenceShape:
		return "shape"
	case AbsenceEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// MarshalText lets reasons key JSON maps by name.
func (r AbsenceReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Absence is the single "no usable result" outcome of a fetch.
type Absence struct {
	Reason AbsenceReason `json:"reason"`
	Detail string        `json:"detail"`
}

func (a Absence) String() string {
	if a.Detail == "" {
		return a.Reason.String()
	}
	return a.Reason.String() + ": " + a.Detail
}

// Result is either a present value or an Absence. The zero value is absent
// with an unknown reason.
type Result[T any] struct {
	value   T
	present bool
	absence Absence
}

// Present wraps a usable value.
func Present[T any](v T) Result[T] {
	return Result[T]{value: v, present: true}
}

// Absent builds an absent result.
func Absent[T any](reason AbsenceReason, format string, args ...any) Result[T] {
	return Result[T]{absence: Absence{Reason: reason, Detail: fmt.Sprintf(format, args...)}}
}

// Get returns the value and whether it is present.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.present
}

// IsPresent reports whether the result carries a value.
func (r Result[T]) IsPresent() bool {
	return r.present
}

// Absence returns the reason for absence; ok is false for present results.
func (r Result[T]) Absence() (Absence, bool) {
	return r.absence, !r.present
}
