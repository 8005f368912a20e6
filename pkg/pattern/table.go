package pattern

// Table is an ordered list of compiled patterns where the first match wins.
// A Table is built once and never mutated, so lookups need no locking.
type Table struct {
	patterns []*Pattern
}

// NewTable compiles paths in order. It fails on the first invalid pattern.
func NewTable(paths []string) (*Table, error) {
	t := &Table{patterns: make([]*Pattern, 0, len(paths))}
	for _, path := range paths {
		p, err := Compile(path)
		if err != nil {
			return nil, err
		}
		t.patterns = append(t.patterns, p)
	}
	return t, nil
}

// Len returns the number of patterns in the table.
func (t *Table) Len() int {
	return len(t.patterns)
}

// Pattern returns the i-th compiled pattern.
func (t *Table) Pattern(i int) *Pattern {
	return t.patterns[i]
}

// Lookup returns the index and captures of the first pattern matching
// pathname, in insertion order.
func (t *Table) Lookup(pathname string) (int, Params, bool) {
	for i, p := range t.patterns {
		if params, ok := p.Exec(pathname); ok {
			return i, params, true
		}
	}
	return -1, nil, false
}
