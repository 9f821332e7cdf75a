package ingestion

import (
	"fmt"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/model"
)

// PartialWriteError reports chunks that failed after the destination was prepared.
// Already written chunks are left in place; Failed lists the indices to retry.
type PartialWriteError struct {
	Location string
	Written  []int
	Failed   []int
	Errs     map[int]error
}

func (e *PartialWriteError) Error() string {
	first := e.Failed[0]
	return fmt.Sprintf("partial write to %s: %d of %d chunks failed (indices %v), first: %v",
		e.Location, len(e.Failed), len(e.Failed)+len(e.Written), e.Failed, e.Errs[first])
}

func (e *PartialWriteError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, i := range e.Failed {
		errs = append(errs, e.Errs[i])
	}
	return errs
}

func newPartialWriteError(location string, chunks int, failures map[int]error) *PartialWriteError {
	e := &PartialWriteError{Location: location, Errs: failures}
	for i := range chunks {
		if _, failed := failures[i]; failed {
			e.Failed = append(e.Failed, i)
		} else {
			e.Written = append(e.Written, i)
		}
	}
	return e
}

// RecordError reports a completed write whose manifest could not be recorded.
type RecordError struct {
	JobID model.JobID
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record manifest %s: %v", e.JobID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
