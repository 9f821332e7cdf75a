package retrieval

import "github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"

// DefaultFlushThreshold is the number of source files buffered between merges.
const DefaultFlushThreshold = 1000

// Accumulator folds fragments into one dataset. Fragments collect in a buffer that is
// merged into the result every threshold files, so the buffer never holds more than
// threshold files' worth of rows.
type Accumulator struct {
	all       *dataset.Dataset
	buffer    *dataset.Dataset
	pending   int
	threshold int
	merges    int
}

func NewAccumulator(threshold int) *Accumulator {
	return &Accumulator{
		all:       dataset.Empty(),
		buffer:    dataset.Empty(),
		threshold: max(threshold, 1),
	}
}

// Add buffers one file's fragment. A nil fragment counts as a file with no rows.
func (a *Accumulator) Add(fragment *dataset.Dataset) {
	a.buffer.Append(fragment)
	a.pending++
	if a.pending == a.threshold {
		a.Flush()
	}
}

// Flush merges the buffer into the result and resets it.
func (a *Accumulator) Flush() {
	if a.pending == 0 {
		return
	}
	a.all.Append(a.buffer)
	a.buffer = dataset.Empty()
	a.pending = 0
	a.merges++
}

// Pending is the number of files buffered since the last flush.
func (a *Accumulator) Pending() int {
	return a.pending
}

// Merges is the number of flushes that merged a non-empty buffer.
func (a *Accumulator) Merges() int {
	return a.merges
}

// Result performs the final flush and returns the accumulated dataset.
func (a *Accumulator) Result() *dataset.Dataset {
	a.Flush()
	return a.all
}
