package storage

import (
	"fmt"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/model"
)

// TSVExtension is appended to chunk names by file-like backends.
const TSVExtension = "tsv"

// Layout fixes where one store call lands. Date and Stamp are taken once per call.
type Layout struct {
	Endpoint model.Endpoint
	Date     string // YYYYMMDD
	Stamp    string // YYYYMMDDHHMM
}

func NewLayout(endpoint model.Endpoint, now time.Time) Layout {
	return Layout{
		Endpoint: endpoint,
		Date:     now.Format("20060102"),
		Stamp:    now.Format("200601021504"),
	}
}

// Dir returns "<domain>/output/<subject>/<YYYYMMDD>".
func (l Layout) Dir() string {
	return l.Endpoint.OutputDir() + "/" + l.Date
}

func (l Layout) Key(index int) ChunkKey {
	return ChunkKey{Layout: l, Index: index}
}

type ChunkKey struct {
	Layout
	Index int
}

// Name returns "<YYYYMMDD><HHMM>_chunk_<index>".
func (k ChunkKey) Name() string {
	return fmt.Sprintf("%s_chunk_%d", k.Stamp, k.Index)
}

// Key returns the slash-separated object key, with extension when ext is not empty.
func (k ChunkKey) Key(ext string) string {
	key := k.Dir() + "/" + k.Name()
	if ext != "" {
		key += "." + ext
	}
	return key
}
