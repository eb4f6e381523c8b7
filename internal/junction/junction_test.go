package junction

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"sqlmodel-graphql/internal/introspection"
	"sqlmodel-graphql/internal/model"
	"sqlmodel-graphql/internal/naming"
)

func idTable(name string) introspection.Table {
	return introspection.Table{Name: name, Columns: []introspection.Column{{Name: "id", IsPrimaryKey: true}}}
}

// linkTable returns a table keyed by two foreign keys, one per target.
func linkTable(name, leftTarget, rightTarget string, extra ...introspection.Column) introspection.Table {
	cols := []introspection.Column{
		{Name: leftTarget + "_id", IsPrimaryKey: true},
		{Name: rightTarget + "_id", IsPrimaryKey: true},
	}
	return introspection.Table{
		Name:    name,
		Columns: append(cols, extra...),
		ForeignKeys: []introspection.ForeignKey{
			{ConstraintName: "fk_" + leftTarget, ColumnName: leftTarget + "_id", ReferencedTable: leftTarget, ReferencedColumn: "id", OrdinalPosition: 1},
			{ConstraintName: "fk_" + rightTarget, ColumnName: rightTarget + "_id", ReferencedTable: rightTarget, ReferencedColumn: "id", OrdinalPosition: 1},
		},
	}
}

func TestCheck(t *testing.T) {
	base := []introspection.Table{idTable("students"), idTable("courses")}

	tests := []struct {
		name   string
		table  func() introspection.Table
		want   Type
		reason Reason
	}{
		{
			name:  "pure",
			table: func() introspection.Table { return linkTable("enrollments", "students", "courses") },
			want:  PureJunction,
		},
		{
			name: "attribute",
			table: func() introspection.Table {
				return linkTable("grades", "students", "courses", introspection.Column{Name: "score", IsNullable: true})
			},
			want: AttributeJunction,
		},
		{
			name: "view",
			table: func() introspection.Table {
				v := linkTable("enrollment_view", "students", "courses")
				v.IsView = true
				return v
			},
			reason: ReasonView,
		},
		{
			name: "one foreign key",
			table: func() introspection.Table {
				tb := linkTable("enrollments", "students", "courses")
				tb.ForeignKeys = tb.ForeignKeys[:1]
				return tb
			},
			reason: ReasonKeyCount,
		},
		{
			name: "self reference",
			table: func() introspection.Table {
				tb := linkTable("mentors", "students", "courses")
				tb.ForeignKeys[1].ReferencedTable = "students"
				return tb
			},
			reason: ReasonSelfReference,
		},
		{
			name:   "missing target",
			table:  func() introspection.Table { return linkTable("waitlist", "students", "terms") },
			reason: ReasonMissingTarget,
		},
		{
			name: "unresolved referenced column",
			table: func() introspection.Table {
				tb := linkTable("enrollments", "students", "courses")
				tb.ForeignKeys[1].ReferencedColumn = ""
				return tb
			},
			reason: ReasonInvalidKey,
		},
		{
			name: "nullable key column",
			table: func() introspection.Table {
				tb := linkTable("enrollments", "students", "courses")
				tb.Columns[1].IsNullable = true
				return tb
			},
			reason: ReasonNullableKey,
		},
		{
			name: "surrogate key only",
			table: func() introspection.Table {
				tb := linkTable("enrollments", "students", "courses")
				tb.Columns[0].IsPrimaryKey = false
				tb.Columns[1].IsPrimaryKey = false
				tb.Columns = append(tb.Columns, introspection.Column{Name: "id", IsPrimaryKey: true})
				return tb
			},
			reason: ReasonNoCoveringKey,
		},
		{
			name: "unique key covers links",
			table: func() introspection.Table {
				tb := linkTable("enrollments", "students", "courses")
				tb.Columns[0].IsPrimaryKey = false
				tb.Columns[1].IsPrimaryKey = false
				tb.Columns = append(tb.Columns, introspection.Column{Name: "id", IsPrimaryKey: true})
				tb.UniqueKeys = []introspection.UniqueKey{{Name: "uq_enrollment", Columns: []string{"courses_id", "students_id"}}}
				return tb
			},
			want: AttributeJunction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := tt.table()
			schema := &introspection.Schema{Tables: append(append([]introspection.Table(nil), base...), table)}

			info, reason := Check(schema, table)
			assert.Equal(t, tt.reason, reason)
			if tt.reason != "" {
				assert.Equal(t, NotJunction, info.Type)
				assert.NotContains(t, ClassifyJunctions(schema), table.Name)
				return
			}
			assert.Equal(t, tt.want, info.Type)
			assert.Equal(t, "courses", info.LeftFK.ReferencedTable)
			assert.Equal(t, "students", info.RightFK.ReferencedTable)
			assert.Contains(t, ClassifyJunctions(schema), table.Name)
		})
	}
}

func TestCheck_CompositeKeys(t *testing.T) {
	tenantKeyed := func(name string) introspection.Table {
		return introspection.Table{
			Name:       name,
			Columns:    []introspection.Column{{Name: "tenant_id"}, {Name: "id"}},
			UniqueKeys: []introspection.UniqueKey{{Name: "PRIMARY", Primary: true, Columns: []string{"tenant_id", "id"}}},
		}
	}
	members := introspection.Table{
		Name: "user_groups",
		Columns: []introspection.Column{
			{Name: "tenant_id"},
			{Name: "user_id"},
			{Name: "group_tenant_id"},
			{Name: "group_id"},
		},
		UniqueKeys: []introspection.UniqueKey{{
			Name:    "PRIMARY",
			Primary: true,
			Columns: []string{"tenant_id", "user_id", "group_tenant_id", "group_id"},
		}},
		ForeignKeys: []introspection.ForeignKey{
			{ConstraintName: "fk_user", ColumnName: "user_id", ReferencedTable: "users", ReferencedColumn: "id", OrdinalPosition: 2},
			{ConstraintName: "fk_user", ColumnName: "tenant_id", ReferencedTable: "users", ReferencedColumn: "tenant_id", OrdinalPosition: 1},
			{ConstraintName: "fk_group", ColumnName: "group_tenant_id", ReferencedTable: "groups", ReferencedColumn: "tenant_id", OrdinalPosition: 1},
			{ConstraintName: "fk_group", ColumnName: "group_id", ReferencedTable: "groups", ReferencedColumn: "id", OrdinalPosition: 2},
		},
	}
	schema := &introspection.Schema{Tables: []introspection.Table{tenantKeyed("users"), tenantKeyed("groups"), members}}

	info, reason := Check(schema, members)
	require.Empty(t, reason)
	assert.Equal(t, PureJunction, info.Type)
	assert.Empty(t, info.AttributeColumns)
	assert.Equal(t, []string{"group_tenant_id", "group_id"}, info.LeftFK.ColumnNames)
	assert.Equal(t, []string{"tenant_id", "user_id"}, info.RightFK.ColumnNames)
	assert.Equal(t, []string{"tenant_id", "id"}, info.RightFK.ReferencedColumns)

	// Dropping one column from the covering key breaks the classification.
	members.UniqueKeys[0].Columns = []string{"tenant_id", "user_id", "group_id"}
	_, reason = Check(schema, members)
	assert.Equal(t, ReasonNoCoveringKey, reason)
}

func TestMap_ToIntrospectionMapKeepsPureOnly(t *testing.T) {
	schema := &introspection.Schema{Tables: []introspection.Table{
		idTable("students"),
		idTable("courses"),
		linkTable("enrollments", "students", "courses"),
		linkTable("grades", "students", "courses", introspection.Column{Name: "score"}),
	}}

	junctions := ClassifyJunctions(schema)
	assert.Equal(t, []string{"enrollments", "grades"}, junctions.Tables())
	assert.Equal(t, []string{"score"}, junctions["grades"].AttributeColumns)

	configs := junctions.ToIntrospectionMap()
	require.Len(t, configs, 1)
	assert.Equal(t, "enrollments", configs["enrollments"].Table)
	assert.Equal(t, "courses", configs["enrollments"].LeftFK.ReferencedTable)
	assert.Empty(t, ClassifyJunctions(nil))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "NotJunction", NotJunction.String())
	assert.Equal(t, "PureJunction", PureJunction.String())
	assert.Equal(t, "AttributeJunction", AttributeJunction.String())
	assert.Equal(t, "Unknown", Type(99).String())
}

const schoolSchema = `
CREATE TABLE students (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE courses (id INTEGER PRIMARY KEY, title TEXT NOT NULL);
CREATE TABLE enrollments (
	student_id INTEGER NOT NULL REFERENCES students(id),
	course_id INTEGER NOT NULL REFERENCES courses(id),
	PRIMARY KEY (student_id, course_id)
);
CREATE TABLE grades (
	student_id INTEGER NOT NULL REFERENCES students(id),
	course_id INTEGER NOT NULL REFERENCES courses(id),
	score INTEGER,
	PRIMARY KEY (student_id, course_id)
);
`

// relationshipsByEntity flattens entities into entity -> field -> target.
func relationshipsByEntity(t *testing.T, entities []model.Entity) map[string]map[string]string {
	t.Helper()
	out := make(map[string]map[string]string, len(entities))
	for _, e := range entities {
		rels := make(map[string]string, len(e.Relationships))
		for _, rel := range e.Relationships {
			target, err := rel.Target.Resolve()
			require.NoError(t, err)
			rels[rel.Name] = target
		}
		out[e.Name] = rels
	}
	return out
}

func TestJunctionModes_SQLite(t *testing.T) {
	tests := []struct {
		mode introspection.JunctionMode
		want map[string]map[string]string
	}{
		{
			mode: introspection.JunctionsAsEntities,
			want: map[string]map[string]string{
				"Student":    {"enrollments": "Enrollment", "grades": "Grade"},
				"Course":     {"enrollments": "Enrollment", "grades": "Grade"},
				"Enrollment": {"student": "Student", "course": "Course"},
				"Grade":      {"student": "Student", "course": "Course"},
			},
		},
		{
			mode: introspection.JunctionsHidden,
			want: map[string]map[string]string{
				"Student": {"grades": "Grade"},
				"Course":  {"grades": "Grade"},
				"Grade":   {"student": "Student", "course": "Course"},
			},
		},
		{
			mode: introspection.JunctionsManyToMany,
			want: map[string]map[string]string{
				"Student": {"grades": "Grade", "courses": "Course"},
				"Course":  {"grades": "Grade", "students": "Student"},
				"Grade":   {"student": "Student", "course": "Course"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			db, err := sql.Open("sqlite", "file:school_"+string(tt.mode)+"?mode=memory&cache=shared")
			require.NoError(t, err)
			db.SetMaxOpenConns(1)
			t.Cleanup(func() { _ = db.Close() })
			_, err = db.Exec(schoolSchema)
			require.NoError(t, err)

			ctx := context.Background()
			schema, err := introspection.Introspect(ctx, db, introspection.SQLite{}, "")
			require.NoError(t, err)

			junctions := ClassifyJunctions(schema)
			assert.Equal(t, PureJunction, junctions["enrollments"].Type)
			assert.Equal(t, AttributeJunction, junctions["grades"].Type)

			entities, err := schema.Entities(ctx, naming.Default(), introspection.EntityOptions{
				Junctions:    junctions.ToIntrospectionMap(),
				JunctionMode: tt.mode,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, relationshipsByEntity(t, entities))
		})
	}
}
