package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names the client operation that failed.
type Kind int

const (
	KindFetch Kind = iota
	KindCreate
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches exactly one of the kind
// sentinels; ErrNotFound additionally matches a 404 response.
var (
	ErrFetch    = errors.New("fetch todos failed")
	ErrCreate   = errors.New("create todo failed")
	ErrUpdate   = errors.New("update todo failed")
	ErrDelete   = errors.New("delete todo failed")
	ErrNotFound = errors.New("todo not found")
)

// Error is returned by every Client method. Status is 0 when the request never
// got a response (transport failure, bad response body).
type Error struct {
	Kind   Kind
	Method string
	Path   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s %s: %d %s: %v", e.Kind, e.Method, e.Path, e.Status, http.StatusText(e.Status), e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s %s: %d %s", e.Kind, e.Method, e.Path, e.Status, http.StatusText(e.Status))
	default:
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Method, e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	if target == ErrNotFound {
		return e.Status == http.StatusNotFound
	}
	return target == kindSentinel(e.Kind)
}

func kindSentinel(k Kind) error {
	switch k {
	case KindFetch:
		return ErrFetch
	case KindCreate:
		return ErrCreate
	case KindUpdate:
		return ErrUpdate
	case KindDelete:
		return ErrDelete
	default:
		return nil
	}
}
