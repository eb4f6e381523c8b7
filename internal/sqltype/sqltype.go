// Package sqltype provides a shared mapping from driver-reported SQL data types
// to the column type tags understood by the annotation mapper.
// MySQL/TiDB, PostgreSQL and SQLite spellings are recognized.
package sqltype

import (
	"strings"

	"sqlmodel-graphql/internal/model"
)

// MapToColumnType converts a SQL data type string to its column type tag.
// The input is case-insensitive. Size specifiers like (10,2) or (255) and
// modifiers like UNSIGNED are stripped before matching, except that
// tinyint(1) is treated as a boolean the way the MySQL driver does.
// Unrecognized types are returned as their lower-cased base name so the
// mapper can report them as unsupported.
func MapToColumnType(sqlType string) model.ColumnType {
	normalized := strings.ToLower(strings.TrimSpace(sqlType))
	if strings.HasPrefix(normalized, "tinyint(1)") {
		return model.TypeBoolean
	}
	base := BaseType(normalized)

	switch base {
	// Integer Numeric Data Types
	case "bigint", "int8", "bigserial", "serial8":
		return model.TypeBigInteger
	case "smallint", "int2", "tinyint", "smallserial", "serial2":
		return model.TypeSmallInteger
	case "int", "integer", "mediumint", "int4", "serial", "serial4", "year":
		return model.TypeInteger
	// Floating Point Numeric Data Types
	case "float", "double", "double precision", "real", "float4", "float8":
		return model.TypeFloat
	// Fixed-Point Numeric Data Types
	case "decimal", "numeric", "dec", "fixed", "money":
		return model.TypeNumeric
	// Boolean Data Type
	case "bool", "boolean":
		return model.TypeBoolean
	// String Data Types
	case "char", "varchar", "character", "character varying", "bpchar", "citext":
		return model.TypeString
	case "nchar", "nvarchar", "national char", "national varchar", "native character", "varying character":
		return model.TypeUnicode
	case "text", "tinytext", "mediumtext", "longtext", "clob":
		return model.TypeText
	case "ntext":
		return model.TypeUnicodeText
	// Binary Data Types
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary", "bytea":
		return model.TypeLargeBinary
	// Date and Time Data Types
	case "date":
		return model.TypeDate
	case "datetime", "timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz":
		return model.TypeDateTime
	case "time", "time without time zone", "time with time zone", "timetz":
		return model.TypeTime
	default:
		return model.ColumnType(base)
	}
}

// BaseType strips size specifiers, array brackets and trailing modifiers from
// a lower-cased SQL type, e.g. "decimal(10,2) unsigned" -> "decimal" and
// "timestamp(6) with time zone" -> "timestamp with time zone".
func BaseType(sqlType string) string {
	s := strings.ToLower(strings.TrimSpace(sqlType))
	for {
		open := strings.Index(s, "(")
		if open == -1 {
			break
		}
		end := strings.Index(s[open:], ")")
		if end == -1 {
			s = s[:open]
			break
		}
		s = s[:open] + s[open+end+1:]
	}
	s = strings.TrimSuffix(s, "[]")
	for _, modifier := range []string{" unsigned", " signed", " zerofill"} {
		s = strings.ReplaceAll(s, modifier, "")
	}
	return strings.Join(strings.Fields(s), " ")
}

// Supported reports whether sqlType maps to a known column type tag.
func Supported(sqlType string) bool {
	return MapToColumnType(sqlType).Known()
}
