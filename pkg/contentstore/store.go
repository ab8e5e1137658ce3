// Package contentstore reads subchapter texts from a storage backend.
//
// Every backend (local directory, S3-compatible bucket, GCS bucket) implements
// Store. Units are listed lazily and fetched as UTF-8 text; the backend is
// never mutated and failed calls are not retried.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"
)

// UnitID is the backend key of one content unit: a file name relative to the
// textbook directory, or a full object key including any prefix.
type UnitID string

// TextSuffix is the only extension listed by the backends.
const TextSuffix = ".txt"

type Store interface {
	// Identity names the backend connection (kind, container, prefix). Two
	// stores with the same identity list the same units.
	Identity() string

	// List yields every unit id once. Ranging over the sequence again
	// re-scans the backend. On failure a single error is yielded and the
	// sequence ends.
	List(ctx context.Context) iter.Seq2[UnitID, error]

	// FetchText returns the unit's content decoded as UTF-8.
	FetchText(ctx context.Context, id UnitID) (string, error)
}

var (
	ErrBackendUnavailable = errors.New("content backend unavailable")
	ErrAccessDenied       = errors.New("access to content backend denied")
	ErrNotFound           = errors.New("content unit not found")
	ErrDecode             = errors.New("content unit is not valid UTF-8")
)

// Error carries the failing backend and unit next to the error kind.
// errors.Is matches both the kind sentinel and the underlying cause.
type Error struct {
	Kind    error
	Backend string
	Unit    UnitID
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Backend != "" {
		fmt.Fprintf(&b, " [%s]", e.Backend)
	}
	if e.Unit != "" {
		fmt.Fprintf(&b, " %q", string(e.Unit))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, backend string, unit UnitID, cause error) *Error {
	return &Error{Kind: kind, Backend: backend, Unit: unit, Err: cause}
}

// decodeText validates UTF-8 without altering the bytes.
func decodeText(backend string, id UnitID, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", newError(ErrDecode, backend, id, nil)
	}
	return string(data), nil
}

// failed is the one-error sequence returned when listing cannot start.
func failed(err error) iter.Seq2[UnitID, error] {
	return func(yield func(UnitID, error) bool) {
		yield("", err)
	}
}

// isTextKey reports whether an object key names a listable unit.
func isTextKey(key string) bool {
	return !strings.HasSuffix(key, "/") && strings.HasSuffix(key, TextSuffix)
}
