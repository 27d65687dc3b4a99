package reconcile

import (
	"fmt"

	"github.com/mbolis/survey-editor/plan"
)

type Failure struct {
	Op  plan.Operation
	Err error
}

// Report is the aggregate outcome of one save. Partial failure is normal:
// the caller communicates counts, never silently treats it as full success.
type Report struct {
	Succeeded []plan.Operation
	Failed    []Failure
}

func (r *Report) AllSucceeded() bool { return len(r.Failed) == 0 }

func (r *Report) Summary() string {
	return fmt.Sprintf("%d succeeded, %d failed", len(r.Succeeded), len(r.Failed))
}
