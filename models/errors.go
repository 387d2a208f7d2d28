package models

import (
	"fmt"
	"strings"
)

// TransportError indicates a collaborator (provider endpoint or store)
// could not be reached at all. Callers must treat dependent state as
// unchanged, not cleared.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PartialLoadError reports that one or more sources failed during a
// multi-source aggregate load. It is advisory: the aggregate operation
// still completed with the subset of sources that succeeded.
type PartialLoadError struct {
	FailedSourceIDs []string
}

func (e *PartialLoadError) Error() string {
	return fmt.Sprintf("partial load: %d source(s) failed: %s",
		len(e.FailedSourceIDs), strings.Join(e.FailedSourceIDs, ", "))
}
