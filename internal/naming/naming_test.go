package naming

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToGraphQLTypeName(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"users", "Users"},
		{"user_profiles", "UserProfiles"},
		{"order_items", "OrderItems"},
		{"api_v2_endpoints", "ApiV2Endpoints"},
		{"a", "A"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := namer.ToGraphQLTypeName(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestToGraphQLFieldName(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"user_name", "userName"},
		{"created_at", "createdAt"},
		{"id", "id"},
		{"user_profile_id", "userProfileId"},
		{"api_v2_key", "apiV2Key"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := namer.ToGraphQLFieldName(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestPluralize(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"user", "users"},
		{"category", "categories"},
		{"person", "people"},
		{"child", "children"},
		{"status", "statuses"},
		{"analysis", "analyses"},
		{"orderItem", "orderItems"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := namer.Pluralize(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSingularize(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"users", "user"},
		{"categories", "category"},
		{"people", "person"},
		{"children", "child"},
		{"statuses", "status"},
		{"analyses", "analysis"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := namer.Singularize(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestPluralizeWithOverrides(t *testing.T) {
	cfg := Config{
		PluralOverrides: map[string]string{
			"staff":  "staff", // Same singular/plural
			"Person": "people",
		},
		SingularOverrides: make(map[string]string),
	}
	namer := New(cfg, nil)

	assert.Equal(t, "staff", namer.Pluralize("staff"))
	assert.Equal(t, "users", namer.Pluralize("user")) // Falls back to library
	assert.Equal(t, "people", namer.Pluralize("person"))
	assert.Equal(t, "People", namer.Pluralize("Person"))
	assert.Equal(t, "salesPeople", namer.Pluralize("salesPerson"))
	assert.Equal(t, "support_staff", namer.Pluralize("support_staff"))
}

func TestSingularizeWithOverrides(t *testing.T) {
	cfg := Config{
		PluralOverrides: make(map[string]string),
		SingularOverrides: map[string]string{
			"data": "datum",
		},
	}
	namer := New(cfg, nil)

	assert.Equal(t, "datum", namer.Singularize("data"))
	assert.Equal(t, "user", namer.Singularize("users")) // Falls back to library
	assert.Equal(t, "SensorDatum", namer.Singularize("SensorData"))
	assert.Equal(t, "sensor_datum", namer.Singularize("sensor_data"))
}

func TestSplitLastSegment(t *testing.T) {
	tests := []struct {
		word, head, tail string
	}{
		{"salesPerson", "sales", "Person"},
		{"sales_person", "sales_", "person"},
		{"Person", "", "Person"},
		{"person", "", "person"},
		{"", "", ""},
	}
	for _, tt := range tests {
		head, tail := splitLastSegment(tt.word)
		assert.Equal(t, tt.head, head, tt.word)
		assert.Equal(t, tt.tail, tail, tt.word)
	}
}

func TestManyToOneFieldName(t *testing.T) {
	namer := Default()

	tests := []struct {
		fkColumn string
		expected string
	}{
		{"author_id", "author"},
		{"editor_id", "editor"},
		{"user_id", "user"},
		{"created_by_user_id", "createdByUser"},
		{"parent_category_id", "parentCategory"},
		{"owner_fk", "owner"},
		{"simple", "simple"}, // No suffix to strip
	}

	for _, tt := range tests {
		t.Run(tt.fkColumn, func(t *testing.T) {
			result := namer.ManyToOneFieldName(tt.fkColumn)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestOneToManyFieldName(t *testing.T) {
	namer := Default()

	tests := []struct {
		sourceTable string
		fkColumn    string
		isOnlyFK    bool
		expected    string
	}{
		{"comments", "user_id", true, "comments"},       // Single FK: use table name
		{"posts", "author_id", false, "authorPosts"},    // Multiple FKs: prefix
		{"posts", "editor_id", false, "editorPosts"},    // Multiple FKs: prefix
		{"order_items", "order_id", true, "orderItems"}, // Single FK with underscore
	}

	for _, tt := range tests {
		t.Run(tt.sourceTable+"_"+tt.fkColumn, func(t *testing.T) {
			result := namer.OneToManyFieldName(tt.sourceTable, tt.fkColumn, tt.isOnlyFK)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestReservedWordSuffixing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	namer := New(DefaultConfig(), logger)

	tests := []struct {
		input    string
		expected string
	}{
		{"query", "Query_"},
		{"Query", "Query_"},
		{"type", "Type_"},
		{"mutation", "Mutation_"},
		{"date", "Date_"},
		{"decimal", "Decimal_"},
		{"users", "Users"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			namer.Reset()
			result := namer.ToGraphQLTypeName(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
	assert.Contains(t, buf.String(), "reserved word")
}

func TestEntityName(t *testing.T) {
	namer := Default()

	tests := []struct {
		table    string
		suffix   string
		expected string
	}{
		{"books", "Model", "BookModel"},
		{"authors", "Model", "AuthorModel"},
		{"order_items", "Model", "OrderItemModel"},
		{"people", "Model", "PersonModel"},
		{"book", "", "Book"},
		{"queries", "Model", "Query_Model"},
		{"times", "Record", "Time_Record"},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.expected, namer.EntityName(tt.table, tt.suffix))
		})
	}
}

func TestRegisterEntity_Collision(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	namer := New(DefaultConfig(), logger)

	assert.Equal(t, "BookModel", namer.RegisterEntity("books", "Model"))
	assert.Equal(t, "Book2Model", namer.RegisterEntity("book", "Model"))
	assert.Contains(t, buf.String(), "naming collision detected")
}

func TestRegisterColumnField_KeepsDatabaseName(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	namer := New(DefaultConfig(), logger)

	assert.Equal(t, "user_id", namer.RegisterColumnField("UserModel", "user_id"))
	// Distinct in the database, equal once camelCased; schemabuild reports that.
	assert.Equal(t, "userId", namer.RegisterColumnField("UserModel", "userId"))
	assert.Equal(t, "user_id2", namer.RegisterColumnField("UserModel", "user_id"))
	assert.Contains(t, buf.String(), "naming collision detected")
}

func TestCollision_RelationshipToColumn(t *testing.T) {
	namer := Default()

	// Columns have precedence
	namer.RegisterColumnField("OrderModel", "author")

	result := namer.RegisterRelationshipField("OrderModel", "author", "users", true)
	assert.Equal(t, "authorRef", result)

	namer.RegisterColumnField("OrderModel", "items")
	result = namer.RegisterRelationshipField("OrderModel", "items", "order_items", false)
	assert.Equal(t, "itemsRel", result)

	// created_by_user camelCases onto the relationship name.
	namer.RegisterColumnField("OrderModel", "created_by_user")
	result = namer.RegisterRelationshipField("OrderModel", "createdByUser", "users", true)
	assert.Equal(t, "createdByUserRef", result)
}

func TestCollision_RelationshipToRelationship(t *testing.T) {
	namer := Default()

	assert.Equal(t, "tags", namer.RegisterRelationshipField("PostModel", "tags", "tags", false))
	assert.Equal(t, "tagsRel", namer.RegisterRelationshipField("PostModel", "tags", "post_tags", false))
	assert.Equal(t, "tagsRel2", namer.RegisterRelationshipField("PostModel", "tags", "tag_links", false))
}

func TestReservedFieldName(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	namer := New(DefaultConfig(), logger)

	assert.Equal(t, "typename_", namer.RegisterRelationshipField("BookModel", "__typename", "books", true))
	assert.Equal(t, "meta_", namer.RegisterColumnField("BookModel", "__meta"))
	assert.Equal(t, "field_", namer.RegisterColumnField("BookModel", "__"))
	assert.Equal(t, 3, strings.Count(buf.String(), "auto-suffixed"))

	assert.False(t, IsReservedFieldName("typename_"))
	assert.True(t, IsReservedFieldName("__typename"))
	assert.True(t, IsReservedTypeName("__Schema"))
	assert.True(t, IsReservedTypeName("DateTime"))
	assert.False(t, IsReservedTypeName("Book"))
}

func TestReservedTypeName_Suffixed(t *testing.T) {
	namer := Default()

	assert.Equal(t, "Query_", namer.ToGraphQLTypeName("query"))
	assert.Equal(t, "Date_Model", namer.RegisterEntity("dates", "Model"))
	assert.False(t, IsReservedTypeName(safeName("__Schema")))
}

func TestReset(t *testing.T) {
	namer := Default()

	namer.RegisterEntity("users", "Model")
	namer.Reset()

	// Should be able to register same entity again without collision
	result := namer.RegisterEntity("users", "Model")
	assert.Equal(t, "UserModel", result)
}

func TestOneToOneFieldName(t *testing.T) {
	namer := Default()

	tests := []struct {
		sourceTable string
		fkColumn    string
		isOnlyFK    bool
		expected    string
	}{
		{"user_profiles", "user_id", true, "userProfile"},
		{"passports", "holder_id", false, "holderPassport"},
	}

	for _, tt := range tests {
		t.Run(tt.sourceTable+"_"+tt.fkColumn, func(t *testing.T) {
			assert.Equal(t, tt.expected, namer.OneToOneFieldName(tt.sourceTable, tt.fkColumn, tt.isOnlyFK))
		})
	}
}

func TestManyToManyFieldName(t *testing.T) {
	namer := Default()

	assert.Equal(t, "employees", namer.ManyToManyFieldName("employees"))
	assert.Equal(t, "roles", namer.ManyToManyFieldName("role"))
	assert.Equal(t, "userGroups", namer.ManyToManyFieldName("user_group"))
}
