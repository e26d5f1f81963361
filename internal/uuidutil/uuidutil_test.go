package uuidutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonical = "550e8400-e29b-41d4-a716-446655440000"

var raw = []byte{
	0x55, 0x0e, 0x84, 0x00,
	0xe2, 0x9b,
	0x41, 0xd4,
	0xa7, 0x16,
	0x44, 0x66, 0x55, 0x44, 0x00, 0x00,
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{name: "upper text", in: "550E8400-E29B-41D4-A716-446655440000"},
		{name: "braced", in: "{550e8400-e29b-41d4-a716-446655440000}"},
		{name: "urn", in: "urn:uuid:550e8400-e29b-41d4-a716-446655440000"},
		{name: "raw bytes", in: raw},
		{name: "text bytes", in: []byte(canonical)},
		{name: "array", in: [16]byte(raw)},
		{name: "uuid", in: uuid.MustParse(canonical)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, canonical, got)
		})
	}
}

func TestCanonicalRejects(t *testing.T) {
	for _, in := range []any{"not-a-uuid", []byte{0x01, 0x02}, 42} {
		_, err := Canonical(in)
		assert.ErrorIs(t, err, ErrInvalid, "%v", in)
	}
}
