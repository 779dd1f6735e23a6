package z3

import "strconv"

// stringTable interns string literals into integer identifiers. String symbols are modelled as integers, so two
// strings are equal exactly when their identifiers are equal. Identifiers picked by the solver that do not belong to
// any interned literal are mapped to fresh strings that cannot collide with a literal.
type stringTable struct {
	ids    map[string]int64
	values map[int64]string
	next   int64
}

func newStringTable() *stringTable {
	return &stringTable{
		ids:    make(map[string]int64),
		values: make(map[int64]string),
	}
}

// intern returns the identifier for s, allocating a new one if needed.
func (t *stringTable) intern(s string) int64 {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := t.next
	t.register(s, id)
	return id
}

// lookup returns the string for an identifier, synthesizing and registering a fresh string if none exists.
func (t *stringTable) lookup(id int64) string {
	if s, ok := t.values[id]; ok {
		return s
	}
	s := "str" + strconv.FormatInt(id, 10)
	for {
		if _, taken := t.ids[s]; !taken {
			break
		}
		s += "_"
	}
	t.register(s, id)
	return s
}

func (t *stringTable) register(s string, id int64) {
	t.ids[s] = id
	t.values[id] = s
	if id >= t.next {
		t.next = id + 1
	}
}
