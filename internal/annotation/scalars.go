package annotation

import "sqlmodel-graphql/internal/model"

type scalarRule struct {
	tag    model.ColumnType
	scalar Scalar
}

// scalarRules is evaluated in order and the first rule whose tag the column
// type descends from wins. float must precede numeric because a float tag is
// also a numeric tag.
var scalarRules = []scalarRule{
	{model.TypeBigInteger, ScalarInt},
	{model.TypeBoolean, ScalarBoolean},
	{model.TypeDate, ScalarDate},
	{model.TypeDateTime, ScalarDateTime},
	{model.TypeFloat, ScalarFloat},
	{model.TypeInteger, ScalarInt},
	{model.TypeLargeBinary, ScalarBytes},
	{model.TypeNumeric, ScalarDecimal},
	{model.TypeSmallInteger, ScalarInt},
	{model.TypeString, ScalarString},
	{model.TypeText, ScalarString},
	{model.TypeTime, ScalarTime},
	{model.TypeUnicode, ScalarString},
	{model.TypeUnicodeText, ScalarString},
}

// ScalarFor returns the scalar a column type maps to.
func ScalarFor(t model.ColumnType) (Scalar, bool) {
	for _, rule := range scalarRules {
		if t.IsA(rule.tag) {
			return rule.scalar, true
		}
	}
	return "", false
}

// MapScalars produces one annotation per column. Nullable columns become
// optional scalars, all others bare scalars.
func (m *Mapper) MapScalars(e model.Entity) (*Map, error) {
	out := newMap(len(e.Columns))
	for _, col := range e.Columns {
		scalar, ok := ScalarFor(col.Type)
		if !ok {
			return nil, &UnsupportedColumnTypeError{Entity: e.Name, Column: col.Name, Type: col.Type}
		}
		a := ScalarOf(scalar)
		if col.Nullable {
			a = OptionalOf(scalar)
		}
		if err := out.add(col.Name, a); err != nil {
			return nil, &DuplicateFieldError{Entity: e.Name, Field: col.Name}
		}
	}
	return out, nil
}
