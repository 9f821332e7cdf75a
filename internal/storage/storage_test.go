package storage

import (
	"errors"
	"testing"
)

func TestRouter_Sink(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	router := &Router{Local: local}

	sink, err := router.Sink(Local)
	if err != nil {
		t.Fatalf("Sink(Local) error = %v", err)
	}
	if sink != local {
		t.Fatal("Sink(Local) returned a different backend")
	}

	for _, kind := range []WriteType{Cloud, Database} {
		_, err := router.Sink(kind)
		if !errors.Is(err, ErrNotImplemented) {
			t.Errorf("Sink(%v) error = %v, want ErrNotImplemented", kind, err)
		}
	}

	var typeErr *InvalidWriteTypeError
	if _, err := router.Sink(WriteType(0)); !errors.As(err, &typeErr) {
		t.Errorf("Sink(0) error = %v, want InvalidWriteTypeError", err)
	}
}

func TestRouter_Source(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	router := &Router{Local: local, Database: NewClickHouseStore(nil, "jackfruit")}

	if _, err := router.Source(Local); err != nil {
		t.Fatalf("Source(Local) error = %v", err)
	}

	var notImpl *NotImplementedError
	if _, err := router.Source(Database); !errors.As(err, &notImpl) || notImpl.Op != "read" {
		t.Fatalf("Source(Database) error = %v, want read NotImplementedError", err)
	}
}
