package writer

import "fmt"

// PersistenceError reports a failed dataset read or write. Read failures are
// downgraded by the orchestrator to "no existing dataset"; write failures
// fail the cycle's persistence step.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
