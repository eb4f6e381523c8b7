package annotation

import "sqlmodel-graphql/internal/model"

// MapRelationships produces one forward-reference annotation per
// relationship:
//
//	one_to_many              -> [T!]!
//	one_to_one, many_to_one  -> T! (T when nullable)
//	many_to_many, other      -> UnsupportedRelationshipCardinalityError
//
// T is the target entity name with the model suffix stripped.
func (m *Mapper) MapRelationships(e model.Entity) (*Map, error) {
	out := newMap(len(e.Relationships))
	for _, rel := range e.Relationships {
		targetName, err := rel.Target.Resolve()
		if err != nil {
			return nil, &UnresolvedTargetError{Entity: e.Name, Relationship: rel.Name, Err: err}
		}
		typeName, err := m.exposedName(targetName)
		if err != nil {
			return nil, err
		}

		var a Annotation
		switch rel.Direction {
		case model.OneToMany:
			a = ListOf(typeName)
		case model.OneToOne, model.ManyToOne:
			if rel.Nullable {
				a = OptionalForward(typeName)
			} else {
				a = Forward(typeName)
			}
		default:
			return nil, &UnsupportedRelationshipCardinalityError{
				Entity:       e.Name,
				Relationship: rel.Name,
				Direction:    rel.Direction,
			}
		}

		if err := out.add(rel.Name, a); err != nil {
			return nil, &DuplicateFieldError{Entity: e.Name, Field: rel.Name}
		}
	}
	return out, nil
}
