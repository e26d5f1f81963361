package sqltype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	tests := []struct {
		sourceType string
		want       Category
	}{
		{"int4", Int},
		{"INT8", Int},
		{"bigint", Int},
		{"int(11) unsigned", Int},
		{"serial", Int},
		{"float8", Float},
		{"double precision", Float},
		{"numeric", Decimal},
		{"DECIMAL(10,2)", Decimal},
		{"bool", Bool},
		{"BOOLEAN", Bool},
		{"jsonb", JSON},
		{"json", JSON},
		{"bytea", Bytes},
		{"varbinary(16)", Bytes},
		{"timestamptz", Time},
		{"datetime", Time},
		{"_int4", Array},
		{"text[]", Array},
		{"varchar", String},
		{"uuid", UUID},
		{"UUID", UUID},
		{"", String},
		{"geometry", String},
	}

	for _, tt := range tests {
		t.Run(tt.sourceType, func(t *testing.T) {
			assert.Equal(t, tt.want, Map(tt.sourceType))
		})
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "int", Int.String())
	assert.Equal(t, "decimal", Decimal.String())
	assert.Equal(t, "json", JSON.String())
	assert.Equal(t, "array", Array.String())
	assert.Equal(t, "uuid", UUID.String())
	assert.Equal(t, "string", String.String())
}

func TestIsJSON(t *testing.T) {
	assert.True(t, IsJSON("jsonb"))
	assert.True(t, IsJSON("JSON"))
	assert.False(t, IsJSON("text"))
	assert.False(t, IsJSON("_jsonb"))
}
