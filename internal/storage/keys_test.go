package storage

import (
	"testing"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/model"
)

func TestChunkKey_Key(t *testing.T) {
	layout := NewLayout(
		model.Endpoint{Domain: "historicaldata", Subject: "AAPL"},
		time.Date(2025, 3, 12, 9, 5, 0, 0, time.UTC),
	)

	if got, want := layout.Dir(), "historicaldata/output/AAPL/20250312"; got != want {
		t.Fatalf("Dir() = %s, want %s", got, want)
	}

	key := layout.Key(3)
	if got, want := key.Name(), "202503120905_chunk_3"; got != want {
		t.Fatalf("Name() = %s, want %s", got, want)
	}
	if got, want := key.Key(TSVExtension), "historicaldata/output/AAPL/20250312/202503120905_chunk_3.tsv"; got != want {
		t.Fatalf("Key() = %s, want %s", got, want)
	}
	if got, want := key.Key(""), "historicaldata/output/AAPL/20250312/202503120905_chunk_3"; got != want {
		t.Fatalf("Key() = %s, want %s", got, want)
	}
}
