package naming

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Namer provides all name transformation functions for converting SQL names
// to entity and GraphQL names. It handles pluralization, reserved words, and
// collisions.
type Namer struct {
	config   Config
	logger   *slog.Logger
	plural   map[string]string
	singular map[string]string
	types    scope
	fields   map[string]scope
	camel    map[string]scope
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Namer{
		config:   cfg,
		logger:   logger,
		plural:   lowerKeys(cfg.PluralOverrides),
		singular: lowerKeys(cfg.SingularOverrides),
	}
	n.Reset()
	return n
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// Reset forgets every registered entity and field, allowing the namer to be
// reused for a new model set.
func (n *Namer) Reset() {
	n.types = make(scope)
	n.fields = make(map[string]scope)
	n.camel = make(map[string]scope)
}

// ToGraphQLTypeName converts a table name to GraphQL type (PascalCase)
// Example: "user_profiles" -> "UserProfiles"
func (n *Namer) ToGraphQLTypeName(tableName string) string {
	return n.checkType(toPascalCase(tableName))
}

// ToGraphQLFieldName converts a column/relationship name to GraphQL field (camelCase)
// Example: "user_name" -> "userName"
func (n *Namer) ToGraphQLFieldName(columnName string) string {
	return toCamelCase(columnName)
}

// EntityName derives the persistence-layer entity name for a table: the
// singular PascalCase table name followed by suffix.
// Example: ("books", "Model") -> "BookModel"
func (n *Namer) EntityName(tableName, suffix string) string {
	return n.singularTypeName(tableName) + suffix
}

func (n *Namer) singularTypeName(tableName string) string {
	return n.checkType(n.Singularize(toPascalCase(tableName)))
}

// ManyToOneFieldName generates the field name for a many-to-one relationship
// based on the FK column name with common suffixes stripped.
// Example: "author_id" -> "author", "created_by_user_id" -> "createdByUser"
func (n *Namer) ManyToOneFieldName(fkColumn string) string {
	name := fkColumn
	for _, suffix := range []string{"_id", "_fk"} {
		if strings.HasSuffix(strings.ToLower(name), suffix) && len(name) > len(suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	return n.ToGraphQLFieldName(name)
}

// OneToManyFieldName generates the field name for a one-to-many relationship.
// If isOnlyFK is true (single FK from source table), uses pluralized table name.
// Otherwise, prefixes with the FK column name for disambiguation.
// Example: isOnlyFK=true: "comments" -> "comments"
// Example: isOnlyFK=false, fkColumn="author_id": "posts" -> "authorPosts"
func (n *Namer) OneToManyFieldName(sourceTable, fkColumn string, isOnlyFK bool) string {
	tablePlural := n.Pluralize(n.ToGraphQLFieldName(sourceTable))

	if isOnlyFK {
		return tablePlural
	}

	prefix := n.ManyToOneFieldName(fkColumn)
	if len(tablePlural) > 0 {
		return prefix + strings.ToUpper(tablePlural[:1]) + tablePlural[1:]
	}
	return prefix
}

// OneToOneFieldName generates the field name for the referenced side of a
// unique foreign key. It follows OneToManyFieldName with a singular table name.
// Example: isOnlyFK=true: "user_profiles" -> "userProfile"
func (n *Namer) OneToOneFieldName(sourceTable, fkColumn string, isOnlyFK bool) string {
	tableSingular := n.Singularize(n.ToGraphQLFieldName(sourceTable))

	if isOnlyFK {
		return tableSingular
	}

	prefix := n.ManyToOneFieldName(fkColumn)
	if len(tableSingular) > 0 {
		return prefix + strings.ToUpper(tableSingular[:1]) + tableSingular[1:]
	}
	return prefix
}

// ManyToManyFieldName generates the field name for direct M2M access through a
// junction table. Returns pluralized target table name in camelCase.
// Example: "employees" -> "employees", "role" -> "roles"
func (n *Namer) ManyToManyFieldName(targetTable string) string {
	return n.Pluralize(n.ToGraphQLFieldName(targetTable))
}

// RegisterEntity registers a table and returns its resolved entity name.
// If two tables produce the same name, a numeric suffix is applied and a
// warning is logged.
func (n *Namer) RegisterEntity(tableName, suffix string) string {
	return n.claim(n.types, n.singularTypeName(tableName), "table:"+tableName) + suffix
}

// RegisterColumnField registers a column of an entity and returns the key
// under which the column is exposed. Column names are kept as in the
// database unless reserved, in which case the leading underscores are
// dropped: "__meta" is exposed as "meta_". Relationships also avoid the
// camelCase form of the key, so they never shadow a column once field names
// are converted. Columns are registered before relationships and win.
func (n *Namer) RegisterColumnField(entityName, columnName string) string {
	key := n.claim(scopeFor(n.fields, entityName), n.checkField(columnName), "column:"+columnName)
	scopeFor(n.camel, entityName).alias(toCamelCase(key), "column:"+columnName)
	return key
}

// RegisterRelationshipField registers a relationship field and returns the resolved name.
// If the field collides with a column, applies appropriate suffix (Rel/Ref).
func (n *Namer) RegisterRelationshipField(entityName, fieldName, source string, isManyToOne bool) string {
	fields := scopeFor(n.fields, entityName)
	fieldName = n.checkField(fieldName)
	if fields.has(fieldName) || scopeFor(n.camel, entityName).has(fieldName) {
		if isManyToOne {
			fieldName += "Ref"
		} else {
			fieldName += "Rel"
		}
	}
	return n.claim(fields, fieldName, "relationship:"+source)
}

func scopeFor(scopes map[string]scope, entityName string) scope {
	s, ok := scopes[entityName]
	if !ok {
		s = make(scope)
		scopes[entityName] = s
	}
	return s
}

func (n *Namer) claim(s scope, name, source string) string {
	got, owner := s.claim(name, source)
	if got != name {
		n.logger.Warn("naming collision detected, applying suffix",
			slog.String("name", name),
			slog.String("renamed", got),
			slog.String("existing_source", owner),
			slog.String("new_source", source),
		)
	}
	return got
}

func (n *Namer) checkType(name string) string {
	if !isReservedTypeName(name) {
		return name
	}
	return n.rename(name)
}

func (n *Namer) checkField(name string) string {
	if !IsReservedFieldName(name) {
		return name
	}
	return n.rename(name)
}

func (n *Namer) rename(name string) string {
	safe := safeName(name)
	n.logger.Warn("GraphQL name conflicts with reserved word, auto-suffixed",
		slog.String("original", name),
		slog.String("renamed", safe),
	)
	return safe
}

// safeName turns a reserved name into a legal one. Leading underscores are
// dropped and one is appended: "__typename" becomes "typename_" and "Query"
// becomes "Query_".
func safeName(name string) string {
	trimmed := strings.TrimLeft(name, "_")
	if trimmed == "" {
		trimmed = "field"
	}
	return trimmed + "_"
}

// Pluralize converts a singular word to its plural form. Overrides match the
// whole word or its last camelCase or snake_case segment, ignoring case, so
// {"person": "people"} turns "salesPerson" into "salesPeople". Anything else
// goes to the inflection library.
func (n *Namer) Pluralize(word string) string {
	return inflect(word, n.plural, inflection.Plural)
}

// Singularize is the inverse of Pluralize and follows the same override rules.
func (n *Namer) Singularize(word string) string {
	return inflect(word, n.singular, inflection.Singular)
}

func inflect(word string, overrides map[string]string, fallback func(string) string) string {
	if override, ok := overrides[strings.ToLower(word)]; ok && override != "" {
		return withLeadingCase(word, override)
	}
	head, tail := splitLastSegment(word)
	if override, ok := overrides[strings.ToLower(tail)]; ok && override != "" && head != "" {
		return head + withLeadingCase(tail, override)
	}
	return fallback(word)
}

// splitLastSegment splits "salesPerson" into "sales" and "Person", and
// "sales_person" into "sales_" and "person".
func splitLastSegment(word string) (head, tail string) {
	for i := len(word) - 1; i > 0; i-- {
		switch c := word[i]; {
		case c == '_':
			return word[:i+1], word[i+1:]
		case c >= 'A' && c <= 'Z':
			return word[:i], word[i:]
		}
	}
	return "", word
}

// withLeadingCase returns repl with its first letter cased like src's.
func withLeadingCase(src, repl string) string {
	if src == "" || repl == "" {
		return repl
	}
	runes := []rune(repl)
	if unicode.IsUpper([]rune(src)[0]) {
		runes[0] = unicode.ToUpper(runes[0])
	} else {
		runes[0] = unicode.ToLower(runes[0])
	}
	return string(runes)
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

// toPascalCase converts snake_case to PascalCase
func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

// toCamelCase converts snake_case to camelCase
func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
