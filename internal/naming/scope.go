package naming

import "strconv"

// scope is one namespace of claimed names: the entity names of a model set,
// or the fields of a single entity. Each name maps to whatever claimed it.
type scope map[string]string

func (s scope) has(name string) bool {
	_, ok := s[name]
	return ok
}

// claim records name for source. A taken name is replaced by the first free
// name2, name3 and so on; owner is then the source holding the original.
func (s scope) claim(name, source string) (got, owner string) {
	prev, taken := s[name]
	if !taken {
		s[name] = source
		return name, ""
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if !s.has(candidate) {
			s[candidate] = source
			return candidate, prev
		}
	}
}

// alias marks name as taken by source without claiming it. An existing
// claim is left alone.
func (s scope) alias(name, source string) {
	if name != "" && !s.has(name) {
		s[name] = source
	}
}
