package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
)

const stagingPrefix = ".staging-"

// LocalStore writes chunks as TSV files under a root directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	root = filepath.Clean(root)
	if root == "." || root == "/" {
		return nil, fmt.Errorf("refusing local storage root %q", root)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Location(layout Layout) string {
	return filepath.Join(s.root, filepath.FromSlash(layout.Dir()))
}

func (s *LocalStore) Ensure(ctx context.Context, layout Layout) error {
	if err := os.MkdirAll(s.Location(layout), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}

// Write stages the chunk next to its final name and renames it into place,
// so a reader never sees a half-written file.
func (s *LocalStore) Write(ctx context.Context, key ChunkKey, chunk *dataset.Dataset) (retErr error) {
	final := filepath.Join(s.root, filepath.FromSlash(key.Key(TSVExtension)))
	f, err := os.CreateTemp(filepath.Dir(final), stagingPrefix+"*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	staging := f.Name()
	defer func() {
		if retErr != nil {
			f.Close()
			os.Remove(staging)
		}
	}()

	w := bufio.NewWriter(f)
	if err := dataset.WriteTSV(w, chunk); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", staging, err)
	}
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", staging, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", staging, err)
	}
	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("rename chunk: %w", err)
	}

	slog.DebugContext(ctx, "chunk file written", "path", final, "size", humanize.Bytes(uint64(info.Size())))
	return nil
}

// List returns slash-separated paths relative to the root that start with prefix,
// in lexical order. A prefix that matches nothing yields an empty list.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	if prefix != "" && !filepath.IsLocal(filepath.FromSlash(prefix)) {
		return nil, &InvalidPathError{Path: prefix}
	}
	base := filepath.Join(s.root, filepath.FromSlash(prefix))
	walkRoot := base
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		walkRoot = filepath.Dir(base)
	}

	var paths []string
	err := filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), stagingPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	sort.Strings(paths)
	return paths, nil
}

func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if !filepath.IsLocal(filepath.FromSlash(path)) {
		return nil, &InvalidPathError{Path: path}
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	return f, nil
}
