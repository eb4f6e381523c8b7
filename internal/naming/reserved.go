package naming

import "strings"

// graphqlReservedTypeWords contains GraphQL keywords, built-in types and the
// custom scalars the schema declares, none of which may name an object type.
var graphqlReservedTypeWords = map[string]bool{
	// GraphQL language keywords
	"query":        true,
	"mutation":     true,
	"subscription": true,
	"type":         true,
	"schema":       true,
	"scalar":       true,
	"enum":         true,
	"input":        true,
	"interface":    true,
	"union":        true,
	"fragment":     true,
	"directive":    true,
	"extend":       true,
	"implements":   true,
	"on":           true,

	// Built-in scalar types
	"int":     true,
	"float":   true,
	"string":  true,
	"boolean": true,
	"id":      true,

	// Custom scalar types
	"date":     true,
	"datetime": true,
	"time":     true,
	"decimal":  true,
	"bytes":    true,

	// Boolean literals
	"true":  true,
	"false": true,
	"null":  true,
}

// IsReservedTypeName reports whether name cannot be used for an object type.
func IsReservedTypeName(name string) bool {
	return isReservedTypeName(name)
}

// isReservedTypeName checks if a type name is reserved.
func isReservedTypeName(name string) bool {
	lowerName := strings.ToLower(name)
	if strings.HasPrefix(lowerName, "__") {
		return true
	}
	return graphqlReservedTypeWords[lowerName]
}

// IsReservedFieldName reports whether name belongs to the introspection
// namespace and cannot name a field.
func IsReservedFieldName(name string) bool {
	return strings.HasPrefix(name, "__")
}
