package dbx

// RowConvertibleEntity is implemented by models that are written with a generated
// INSERT statement.
//
// ToRow returns the values of the columns reported by DeriveColumnNamesFromTags,
// in the same order.
type RowConvertibleEntity interface {
	ToRow() []any
}
