package annotation

// Field is one entry of a Map.
type Field struct {
	Name       string
	Annotation Annotation
}

// Map is an ordered field-name to annotation mapping. Keys are unique and
// keep the order in which columns and relationships were declared so that
// output built from a Map is deterministic.
type Map struct {
	fields []Field
	index  map[string]int
}

// NewMap builds a Map from fields, failing on duplicate names.
func NewMap(fields ...Field) (*Map, error) {
	m := newMap(len(fields))
	for _, f := range fields {
		if err := m.add(f.Name, f.Annotation); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func newMap(capacity int) *Map {
	return &Map{
		fields: make([]Field, 0, capacity),
		index:  make(map[string]int, capacity),
	}
}

func (m *Map) add(name string, a Annotation) error {
	if _, exists := m.index[name]; exists {
		return &DuplicateFieldError{Field: name}
	}
	m.index[name] = len(m.fields)
	m.fields = append(m.fields, Field{Name: name, Annotation: a})
	return nil
}

func (m *Map) clone() *Map {
	out := newMap(m.Len())
	for _, f := range m.Fields() {
		out.index[f.Name] = len(out.fields)
		out.fields = append(out.fields, f)
	}
	return out
}

// Get returns the annotation for name.
func (m *Map) Get(name string) (Annotation, bool) {
	if m == nil {
		return Annotation{}, false
	}
	i, ok := m.index[name]
	if !ok {
		return Annotation{}, false
	}
	return m.fields[i].Annotation, true
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.fields)
}

// Keys returns field names in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.fields))
	for i, f := range m.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the entries in insertion order.
func (m *Map) Fields() []Field {
	if m == nil {
		return nil
	}
	return append([]Field(nil), m.fields...)
}

// Equal reports whether both maps hold the same keys with the same
// annotations. Order is not significant.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, f := range m.Fields() {
		a, ok := other.Get(f.Name)
		if !ok || a != f.Annotation {
			return false
		}
	}
	return true
}

// AsStrings renders every annotation in GraphQL notation keyed by field name.
func (m *Map) AsStrings() map[string]string {
	out := make(map[string]string, m.Len())
	for _, f := range m.Fields() {
		out[f.Name] = f.Annotation.String()
	}
	return out
}
