// Package storage routes chunk writes and prefix reads to the configured backends.
package storage

import (
	"context"
	"io"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
)

// Sink writes the chunks of one store call.
type Sink interface {
	// Ensure creates the destination for layout if it does not exist yet.
	Ensure(ctx context.Context, layout Layout) error
	Write(ctx context.Context, key ChunkKey, chunk *dataset.Dataset) error
	// Location is the shared parent location returned to the caller.
	Location(layout Layout) string
}

// ColumnChecker is implemented by sinks that cannot store every column name.
// It is consulted before any I/O.
type ColumnChecker interface {
	CheckColumns(columns []string) error
}

// Source enumerates and opens stored objects.
type Source interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Router holds one optional backend per write type. A nil backend is unimplemented.
type Router struct {
	Local    Sink
	Cloud    Sink
	Database Sink
}

// Sink returns the backend configured for t.
func (r *Router) Sink(t WriteType) (Sink, error) {
	var sink Sink
	switch t {
	case Local:
		sink = r.Local
	case Cloud:
		sink = r.Cloud
	case Database:
		sink = r.Database
	default:
		return nil, &InvalidWriteTypeError{Value: t.String()}
	}
	if sink == nil {
		return nil, &NotImplementedError{Kind: t, Op: "write"}
	}
	return sink, nil
}

// Source returns the backend for t if it can be read back by prefix.
func (r *Router) Source(t WriteType) (Source, error) {
	sink, err := r.Sink(t)
	if err != nil {
		return nil, err
	}
	source, ok := sink.(Source)
	if !ok {
		return nil, &NotImplementedError{Kind: t, Op: "read"}
	}
	return source, nil
}
