package introspection

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"sqlmodel-graphql/internal/model"
	"sqlmodel-graphql/internal/sqltype"
)

// EffectiveColumnType returns the final column type tag for a column,
// including explicit overrides applied from configuration.
func EffectiveColumnType(col Column) model.ColumnType {
	if col.OverrideType != "" {
		return col.OverrideType
	}
	return sqltype.MapToColumnType(col.DataType)
}

// ApplyTypeOverrides sets explicit column type tags from configuration.
// overrides maps a column type tag to "table.column" glob patterns, matched
// case-insensitively against SQL names, e.g. {"unicode_text": ["*.payload"]}.
// A column matched by patterns of two different tags is an error.
func ApplyTypeOverrides(schema *Schema, overrides map[string][]string) error {
	if schema == nil || len(overrides) == 0 {
		return nil
	}

	tags := make([]string, 0, len(overrides))
	for tag := range overrides {
		if !model.ColumnType(tag).Known() {
			return fmt.Errorf("unknown column type %q in type overrides", tag)
		}
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for ti := range schema.Tables {
		table := &schema.Tables[ti]
		for ci := range table.Columns {
			col := &table.Columns[ci]
			qualified := table.Name + "." + col.Name
			var matched string
			for _, tag := range tags {
				if !matchesAny(qualified, overrides[tag]) {
					continue
				}
				if matched != "" && matched != tag {
					return fmt.Errorf("column %s matches type overrides %q and %q", qualified, matched, tag)
				}
				matched = tag
			}
			if matched != "" {
				col.OverrideType = model.ColumnType(matched)
			}
		}
	}
	return nil
}

func matchesAny(value string, patterns []string) bool {
	value = strings.ToLower(value)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		ok, err := path.Match(strings.ToLower(pattern), value)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
