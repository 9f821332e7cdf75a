// Package retrieval reads stored chunks back by prefix.
package retrieval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
)

// Source lists and opens stored objects.
type Source interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// UnreadableObjectError is logged for an object that could not be opened or parsed.
// It never fails a read.
type UnreadableObjectError struct {
	Path string
	Err  error
}

func (e *UnreadableObjectError) Error() string {
	return fmt.Sprintf("unreadable object %q: %v", e.Path, e.Err)
}

func (e *UnreadableObjectError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a prefix read.
type Result struct {
	Dataset *dataset.Dataset
	Files   int
	Skipped []string
	Merges  int
}

// Reader reads every object under a prefix into a single dataset.
type Reader struct {
	source    Source
	threshold int
	workers   int
}

// NewReader creates a Reader. workers objects are fetched concurrently; fragments are
// still accumulated in listing order.
func NewReader(source Source, threshold, workers int) *Reader {
	if threshold < 1 {
		threshold = DefaultFlushThreshold
	}
	return &Reader{source: source, threshold: threshold, workers: max(workers, 1)}
}

// ReadPrefix returns the rows of every object under prefix. A prefix matching
// nothing yields an empty dataset.
func (r *Reader) ReadPrefix(ctx context.Context, prefix string) (*dataset.Dataset, error) {
	res, err := r.Read(ctx, prefix)
	if res == nil {
		return nil, err
	}
	return res.Dataset, err
}

// Read is ReadPrefix with statistics. When ctx is cancelled mid-read the rows
// accumulated so far are returned together with ctx.Err().
func (r *Reader) Read(ctx context.Context, prefix string) (*Result, error) {
	paths, err := r.source.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	slog.DebugContext(ctx, "read started", "prefix", prefix, "objects", len(paths))

	acc := NewAccumulator(r.threshold)
	res := &Result{}
	for start := 0; start < len(paths); start += r.workers {
		window := paths[start:min(start+r.workers, len(paths))]
		fragments, errs := r.fetchWindow(ctx, window)
		if err := ctx.Err(); err != nil {
			res.Dataset = acc.Result()
			res.Merges = acc.Merges()
			return res, err
		}

		for i, path := range window {
			if errs[i] != nil {
				unreadable := &UnreadableObjectError{Path: path, Err: errs[i]}
				slog.WarnContext(ctx, "skipping unreadable object", "path", path, "error", unreadable)
				res.Skipped = append(res.Skipped, path)
			}
			acc.Add(fragments[i])
			res.Files++
		}
	}

	res.Dataset = acc.Result()
	res.Merges = acc.Merges()

	slog.InfoContext(ctx, "read complete",
		"prefix", prefix,
		"objects", res.Files,
		"skipped", len(res.Skipped),
		"rows", humanize.Comma(int64(res.Dataset.NumRows())),
	)
	return res, nil
}

func (r *Reader) fetchWindow(ctx context.Context, paths []string) ([]*dataset.Dataset, []error) {
	fragments := make([]*dataset.Dataset, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			fragments[i], errs[i] = r.fetch(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	return fragments, errs
}

func (r *Reader) fetch(ctx context.Context, path string) (*dataset.Dataset, error) {
	rc, err := r.source.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return dataset.ReadTSV(bufio.NewReader(rc))
}
