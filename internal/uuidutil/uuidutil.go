// Package uuidutil normalizes UUID column values to their canonical
// lower-case text form.
package uuidutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalid is returned for values that are not UUIDs.
var ErrInvalid = errors.New("invalid UUID value")

// ParseString parses any format uuid.Parse accepts, including braces and
// urn:uuid: prefixes.
func ParseString(raw string) (uuid.UUID, string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	return parsed, parsed.String(), nil
}

// ParseBytes parses 16 RFC-order bytes, or the text form of a UUID when
// the driver returns text as bytes.
func ParseBytes(raw []byte) (uuid.UUID, string, error) {
	if len(raw) != 16 {
		return ParseString(string(raw))
	}
	parsed, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %d bytes", ErrInvalid, len(raw))
	}
	return parsed, parsed.String(), nil
}

// Canonical returns the canonical text of a scanned or caller-supplied
// UUID value. Values of other types are an error.
func Canonical(v any) (string, error) {
	var (
		s   string
		err error
	)
	switch t := v.(type) {
	case string:
		_, s, err = ParseString(t)
	case []byte:
		_, s, err = ParseBytes(t)
	case [16]byte:
		s = uuid.UUID(t).String()
	case uuid.UUID:
		s = t.String()
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalid, v)
	}
	return s, err
}
