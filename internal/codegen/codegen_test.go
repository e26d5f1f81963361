package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daogen/internal/introspection"
	"daogen/internal/naming"
)

func orderItems() *introspection.Entity {
	return introspection.NewEntity("order_items", []introspection.Column{
		{Name: "id", IsPrimaryKey: true, Elidable: true, SourceType: "bigserial"},
		{Name: "order_id", SourceType: "int8"},
		{Name: "price", SourceType: "numeric(10,2)"},
		{Name: "note", Elidable: true, SourceType: "text"},
		{Name: "attrs", Elidable: true, SourceType: "jsonb", IsJSON: true},
		{Name: "tags", Elidable: true, SourceType: "_text"},
		{Name: "shipped_at", Elidable: true, SourceType: "timestamptz"},
		{Name: "paid", SourceType: "bool"},
	})
}

// flat collapses gofmt alignment so assertions do not depend on padding.
func flat(src string) string {
	return strings.Join(strings.Fields(src), " ")
}

func TestStruct(t *testing.T) {
	src, err := Struct(orderItems(), Options{Package: "shop", DecimalNumerics: true})
	require.NoError(t, err)
	out := flat(src)

	assert.Contains(t, out, "// Code generated by daogen. DO NOT EDIT.")
	assert.Contains(t, out, "package shop")
	assert.Contains(t, out, `"github.com/shopspring/decimal"`)
	assert.Contains(t, out, "// OrderItem is a row of the order_items table.")
	assert.Contains(t, out, "type OrderItem struct {")

	fields := []string{
		"ID int64 `db:\"id\" json:\"id,omitempty\"`",
		"OrderID int64 `db:\"order_id\" json:\"orderId\"`",
		"Price decimal.Decimal `db:\"price\" json:\"price\"`",
		"Note *string `db:\"note\" json:\"note,omitempty\"`",
		"Attrs any `db:\"attrs\" json:\"attrs,omitempty\"`",
		"Tags []string `db:\"tags\" json:\"tags,omitempty\"`",
		"ShippedAt *time.Time `db:\"shipped_at\" json:\"shippedAt,omitempty\"`",
		"Paid bool `db:\"paid\" json:\"paid\"`",
	}
	for _, field := range fields {
		assert.Contains(t, out, field)
	}
	assert.Contains(t, out, `func (OrderItem) TableName() string { return "order_items" }`)
}

func TestStructOptions(t *testing.T) {
	namer := naming.New(naming.Config{TypeOverrides: map[string]string{"order_items": "Line"}}, nil)
	src, err := Struct(orderItems(), Options{Namer: namer, PreserveColumnNames: true})
	require.NoError(t, err)
	out := flat(src)

	assert.Contains(t, out, "package models")
	assert.Contains(t, out, "type Line struct {")
	assert.Contains(t, out, "Price string `db:\"price\" json:\"price\"`")
	assert.Contains(t, out, "OrderID int64 `db:\"order_id\" json:\"order_id\"`")
	assert.NotContains(t, out, "shopspring")
}

func TestStructCollidingColumns(t *testing.T) {
	entity := introspection.NewEntity("people", []introspection.Column{
		{Name: "user_id", SourceType: "int4"},
		{Name: "user__id", SourceType: "int4"},
		{Name: "2fa", SourceType: "bool"},
	})
	src, err := Struct(entity, Options{})
	require.NoError(t, err)
	out := flat(src)

	assert.Contains(t, out, "type Person struct {")
	assert.Contains(t, out, "UserID int64")
	assert.Contains(t, out, "UserID2 int64")
	assert.Contains(t, out, "F2fa bool")
}

func TestStructRejectsEmptyEntity(t *testing.T) {
	_, err := Struct(introspection.NewEntity("ghost", nil), Options{})
	assert.ErrorIs(t, err, introspection.ErrEntityNotFound)
}

func TestFileRendersSeveralEntities(t *testing.T) {
	users := introspection.NewEntity("users", []introspection.Column{{Name: "id", IsPrimaryKey: true, SourceType: "int4"}})
	out := flat(File([]*introspection.Entity{users, orderItems()}, Options{}).GoString())
	assert.Contains(t, out, "type User struct {")
	assert.Contains(t, out, "type OrderItem struct {")
}
