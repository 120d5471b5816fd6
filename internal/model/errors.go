package model

import (
	"fmt"
	"net/http"
)

// FetchError is returned when the transport reports a non-success status.
// Status is 0 when the request never produced a response.
type FetchError struct {
	Path   FragmentPath
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is returned when a payload is not a well-formed fragment.
type ParseError struct {
	Path FragmentPath
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ResolutionError is returned when a source reference cannot be turned into a fragment path.
type ResolutionError struct {
	Base   FragmentPath
	Ref    string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q from %s: %s", e.Ref, e.Base, e.Reason)
}
