package introspection

import (
	"context"
	"fmt"

	"sqlmodel-graphql/internal/model"
	"sqlmodel-graphql/internal/naming"
)

// EntityOptions controls the conversion of a schema into entity descriptors.
type EntityOptions struct {
	// Suffix is appended to entity names, e.g. "Model" for "BookModel".
	Suffix       string
	Junctions    JunctionMap
	JunctionMode JunctionMode
}

// Entities converts the schema into entity descriptors, one per exposed table
// in schema order. Relationship metadata is rebuilt first. Entity names are
// singular PascalCase table names plus opts.Suffix; column names are kept as
// in the database except reserved "__" names, which lose the prefix, and
// relationship names are deconflicted against them.
func (s *Schema) Entities(ctx context.Context, namer *naming.Namer, opts EntityOptions) ([]model.Entity, error) {
	if s == nil {
		return nil, nil
	}
	if namer == nil {
		namer = naming.Default()
	}
	mode := opts.JunctionMode
	if mode == "" {
		mode = JunctionsAsEntities
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown junction mode %q", mode)
	}

	ctx, span := startSpan(ctx, "introspection.entities")
	defer span.End()

	if err := RebuildRelationshipsWithJunctions(ctx, s, namer, opts.Junctions, mode); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	hidden := hiddenTables(opts.Junctions, mode)
	tables := make([]*Table, 0, len(s.Tables))
	for i := range s.Tables {
		if hidden[s.Tables[i].Name] {
			continue
		}
		tables = append(tables, &s.Tables[i])
	}

	entities := make([]model.Entity, len(tables))
	index := make(map[string]int, len(tables))
	for i, table := range tables {
		index[table.Name] = i
		entities[i] = model.Entity{
			Name:    namer.RegisterEntity(table.Name, opts.Suffix),
			Table:   table.Name,
			Comment: table.Comment,
		}
	}

	for i, table := range tables {
		entity := &entities[i]
		entity.Columns = make([]model.Column, 0, len(table.Columns))
		for _, col := range table.Columns {
			entity.Columns = append(entity.Columns, model.Column{
				Name:     namer.RegisterColumnField(entity.Name, col.Name),
				Type:     EffectiveColumnType(col),
				Nullable: col.IsNullable,
				Comment:  col.Comment,
			})
		}

		for _, rel := range table.Relationships {
			target, ok := index[rel.RemoteTable]
			if !ok {
				err := fmt.Errorf("table %s: relationship %s references unknown table %s", table.Name, rel.FieldName, rel.RemoteTable)
				recordSpanError(span, err)
				return nil, err
			}
			name := namer.RegisterRelationshipField(entity.Name, rel.FieldName, rel.RemoteTable, rel.Direction == model.ManyToOne)
			entity.Relationships = append(entity.Relationships, model.Relationship{
				Name:      name,
				Target:    model.TargetEntity(&entities[target]),
				Direction: rel.Direction,
				Nullable:  rel.Nullable,
			})
		}
	}

	return entities, nil
}
