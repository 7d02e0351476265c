package projection

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned before any query is issued when a required
// argument is blank.
var ErrInvalidArgument = errors.New("invalid argument")

// Projection passes, as reported by QueryExecutionError and the metrics.
const (
	PassPrimary = "primary"
	PassEdges   = "edges"
)

// QueryExecutionError reports a failed call to the graph client.
type QueryExecutionError struct {
	GraphID string
	Pass    string
	Err     error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("%s query on graph %s failed: %v", e.Pass, e.GraphID, e.Err)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}

func invalidArgument(name string) error {
	return fmt.Errorf("%w: '%s' is required", ErrInvalidArgument, name)
}
