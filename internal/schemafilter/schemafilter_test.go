package schemafilter

import (
	"context"
	"testing"

	"sqlmodel-graphql/internal/introspection"
	"sqlmodel-graphql/internal/model"
	"sqlmodel-graphql/internal/naming"
)

func TestApply_AllowsAllByDefault(t *testing.T) {
	schema := &introspection.Schema{
		Tables: []introspection.Table{
			{Name: "users", Columns: []introspection.Column{{Name: "id"}}},
			{Name: "orders", Columns: []introspection.Column{{Name: "id"}}},
		},
	}

	Apply(context.Background(), schema, Config{})

	if len(schema.Tables) != 2 {
		t.Fatalf("expected all tables to remain, got %d", len(schema.Tables))
	}
}

func TestApply_TableAndColumnFilters(t *testing.T) {
	schema := &introspection.Schema{
		Tables: []introspection.Table{
			{
				Name: "users",
				Columns: []introspection.Column{
					{Name: "id", IsPrimaryKey: true},
					{Name: "email"},
					{Name: "password_hash"},
				},
				UniqueKeys: []introspection.UniqueKey{
					{Name: "uq_email", Columns: []string{"email"}},
					{Name: "uq_password", Columns: []string{"password_hash"}},
				},
			},
			{
				Name: "audit_intern",
				Columns: []introspection.Column{
					{Name: "id", IsPrimaryKey: true},
					{Name: "payload"},
				},
			},
		},
	}

	cfg := Config{
		AllowTables: []string{"*"},
		DenyTables:  []string{"*_intern"},
		AllowColumns: map[string][]string{
			"*": {"*"},
		},
		DenyColumns: map[string][]string{
			"users": {"password_*"},
		},
	}

	Apply(context.Background(), schema, cfg)

	if len(schema.Tables) != 1 || schema.Tables[0].Name != "users" {
		t.Fatalf("expected only users table to remain, got %+v", schema.Tables)
	}

	if len(schema.Tables[0].Columns) != 2 {
		t.Fatalf("expected password_hash to be filtered, got %+v", schema.Tables[0].Columns)
	}

	if len(schema.Tables[0].UniqueKeys) != 1 || schema.Tables[0].UniqueKeys[0].Name != "uq_email" {
		t.Fatalf("expected only uq_email to remain, got %+v", schema.Tables[0].UniqueKeys)
	}
}

func TestApply_RemovesForeignKeysAndRelationshipsForFilteredColumns(t *testing.T) {
	schema := &introspection.Schema{
		Tables: []introspection.Table{
			{
				Name: "users",
				Columns: []introspection.Column{
					{Name: "id", IsPrimaryKey: true},
				},
			},
			{
				Name: "posts",
				Columns: []introspection.Column{
					{Name: "id", IsPrimaryKey: true},
					{Name: "user_id"},
				},
				ForeignKeys: []introspection.ForeignKey{
					{
						ColumnName:       "user_id",
						ReferencedTable:  "users",
						ReferencedColumn: "id",
						ConstraintName:   "posts_user_fk",
					},
				},
			},
		},
	}

	cfg := Config{
		AllowTables: []string{"*"},
		AllowColumns: map[string][]string{
			"*": {"*"},
		},
		DenyColumns: map[string][]string{
			"posts": {"user_id"},
		},
	}

	Apply(context.Background(), schema, cfg)

	posts := schema.Table("posts")
	if posts == nil {
		t.Fatalf("expected posts table to remain")
	}
	if len(posts.ForeignKeys) != 0 {
		t.Fatalf("expected foreign keys removed, got %+v", posts.ForeignKeys)
	}
	if len(posts.Relationships) != 0 {
		t.Fatalf("expected relationships removed, got %+v", posts.Relationships)
	}
	if users := schema.Table("users"); len(users.Relationships) != 0 {
		t.Fatalf("expected reverse relationships removed, got %+v", users.Relationships)
	}
}

func TestApply_LeavesRelationshipsToEntities(t *testing.T) {
	schema := &introspection.Schema{
		Tables: []introspection.Table{
			{Name: "users", Columns: []introspection.Column{{Name: "id", IsPrimaryKey: true}}},
			{
				Name:          "posts",
				Columns:       []introspection.Column{{Name: "id", IsPrimaryKey: true}, {Name: "user_id"}},
				ForeignKeys:   []introspection.ForeignKey{{ColumnName: "user_id", ReferencedTable: "users", ReferencedColumn: "id", ConstraintName: "posts_user_fk"}},
				Relationships: []introspection.Relationship{{Direction: model.ManyToOne, RemoteTable: "users", FieldName: "stale"}},
			},
		},
	}

	Apply(context.Background(), schema, Config{})

	posts := schema.Table("posts")
	if len(posts.ForeignKeys) != 1 {
		t.Fatalf("expected foreign key kept, got %+v", posts.ForeignKeys)
	}
	if len(posts.Relationships) != 0 {
		t.Fatalf("expected relationships cleared, got %+v", posts.Relationships)
	}

	entities, err := schema.Entities(context.Background(), naming.Default(), introspection.EntityOptions{Suffix: "Model"})
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if len(entities) != 2 || len(entities[1].Relationships) != 1 || entities[1].Relationships[0].Name != "user" {
		t.Fatalf("expected posts.user relationship, got %+v", entities)
	}
	if len(entities[0].Relationships) != 1 || entities[0].Relationships[0].Direction != model.OneToMany {
		t.Fatalf("expected one-to-many relationship on users, got %+v", entities[0].Relationships)
	}
}

func TestApply_DropsWholeCompositeForeignKey(t *testing.T) {
	schema := &introspection.Schema{
		Tables: []introspection.Table{
			{
				Name:    "regions",
				Columns: []introspection.Column{{Name: "country"}, {Name: "code"}},
			},
			{
				Name:    "offices",
				Columns: []introspection.Column{{Name: "id"}, {Name: "country"}, {Name: "region_code"}},
				ForeignKeys: []introspection.ForeignKey{
					{ConstraintName: "fk_region", ColumnName: "country", ReferencedTable: "regions", ReferencedColumn: "country", OrdinalPosition: 1},
					{ConstraintName: "fk_region", ColumnName: "region_code", ReferencedTable: "regions", ReferencedColumn: "code", OrdinalPosition: 2},
				},
			},
		},
	}

	Apply(context.Background(), schema, Config{DenyColumns: map[string][]string{"regions": {"code"}}})

	if offices := schema.Table("offices"); len(offices.ForeignKeys) != 0 {
		t.Fatalf("expected composite foreign key removed, got %+v", offices.ForeignKeys)
	}
}

func TestApply_SkipUnsupportedTypes(t *testing.T) {
	newSchema := func() *introspection.Schema {
		return &introspection.Schema{
			Tables: []introspection.Table{{
				Name: "places",
				Columns: []introspection.Column{
					{Name: "id", DataType: "int"},
					{Name: "location", DataType: "geometry"},
					{Name: "payload", DataType: "json", OverrideType: model.TypeUnicodeText},
				},
			}},
		}
	}

	schema := newSchema()
	Apply(context.Background(), schema, Config{})
	if len(schema.Tables[0].Columns) != 3 {
		t.Fatalf("expected unsupported columns kept by default, got %+v", schema.Tables[0].Columns)
	}

	schema = newSchema()
	Apply(context.Background(), schema, Config{SkipUnsupportedTypes: true})
	columns := schema.Tables[0].Columns
	if len(columns) != 2 || columns[0].Name != "id" || columns[1].Name != "payload" {
		t.Fatalf("expected geometry column skipped, got %+v", columns)
	}
}

func TestApply_ScanViews(t *testing.T) {
	schema := &introspection.Schema{
		Tables: []introspection.Table{
			{Name: "users", Columns: []introspection.Column{{Name: "id"}}},
			{Name: "active_users", IsView: true, Columns: []introspection.Column{{Name: "id"}}},
		},
	}

	Apply(context.Background(), schema, Config{})
	if len(schema.Tables) != 1 || schema.Tables[0].Name != "users" {
		t.Fatalf("expected views to be skipped by default, got %+v", schema.Tables)
	}

	schema = &introspection.Schema{
		Tables: []introspection.Table{
			{Name: "users", Columns: []introspection.Column{{Name: "id"}}},
			{Name: "active_users", IsView: true, Columns: []introspection.Column{{Name: "id"}}},
		},
	}

	Apply(context.Background(), schema, Config{ScanViewsEnabled: true, AllowTables: []string{"*"}})
	if len(schema.Tables) != 2 {
		t.Fatalf("expected views to be included when scan_views_enabled is set, got %+v", schema.Tables)
	}
}
