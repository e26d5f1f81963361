package introspection

// PrimaryKeyColumns returns all primary key columns of an entity in table order.
// Returns an empty slice if the entity has no primary key.
func PrimaryKeyColumns(entity *Entity) []Column {
	var cols []Column
	for _, col := range entity.Columns {
		if col.IsPrimaryKey {
			cols = append(cols, col)
		}
	}
	return cols
}

// ElidableColumns returns the columns an insert may omit.
func ElidableColumns(entity *Entity) []Column {
	var cols []Column
	for _, col := range entity.Columns {
		if col.Elidable {
			cols = append(cols, col)
		}
	}
	return cols
}
