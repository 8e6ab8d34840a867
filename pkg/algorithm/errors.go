package algorithm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStrategy is returned for a strategy nobody registered.
	ErrUnknownStrategy = errors.New("unknown weak-node strategy")
	// ErrNoQueue is returned by Run when nothing was submitted.
	ErrNoQueue = errors.New("no job queue submitted")
	// ErrForeignNode is recorded for jobs whose nodes are not in the snapshot.
	ErrForeignNode = errors.New("job node is not part of the analysed topology")
	// ErrRunIncomplete is matched by every RunError.
	ErrRunIncomplete = errors.New("weak-node run did not drain its queue")
)

// RunError reports a run that stopped before every job completed.
// Results of such a run are discarded.
type RunError struct {
	Strategy  Strategy
	Completed int
	Pending   int
	Err       error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s run incomplete: %d completed, %d pending", e.Strategy, e.Completed, e.Pending)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RunError) Is(target error) bool {
	return target == ErrRunIncomplete
}

func (e *RunError) Unwrap() error {
	return e.Err
}
