package storage

import (
	"fmt"
	"strings"
	"unicode"
)

// WriteType selects one of the storage backends.
type WriteType int

const (
	Local WriteType = iota + 1
	Cloud
	Database
)

var writeTypeNames = map[WriteType]string{
	Local:    "localstorage",
	Cloud:    "cloudstorage",
	Database: "databasestorage",
}

func (t WriteType) String() string {
	if name, ok := writeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("writetype(%d)", int(t))
}

type InvalidWriteTypeError struct {
	Value string
}

func (e *InvalidWriteTypeError) Error() string {
	return fmt.Sprintf("write type %q is invalid, must be one of localstorage, cloudstorage or databasestorage", e.Value)
}

// NormalizeWriteType drops punctuation, symbols and whitespace and lower-cases the rest,
// so "Local Storage!" and "localstorage" normalize identically.
func NormalizeWriteType(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// ParseWriteType resolves a user-supplied write type string.
func ParseWriteType(s string) (WriteType, error) {
	normalized := NormalizeWriteType(s)
	for t, name := range writeTypeNames {
		if name == normalized {
			return t, nil
		}
	}
	return 0, &InvalidWriteTypeError{Value: s}
}
