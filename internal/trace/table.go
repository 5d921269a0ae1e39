package trace

// EntryKind tags the variant held by an Entry.
type EntryKind int

const (
	// EntryValues carries one rendered value per sampling instant.
	EntryValues EntryKind = iota

	// EntryNotFound marks a requested name that resolved to nothing.
	EntryNotFound
)

// Entry is one row of a Table: a resolved signal with its values, or a
// requested name that was not found (tolerant resolution only).
type Entry struct {
	Name   string
	Kind   EntryKind
	Values []string // len(Table.Times) when Kind is EntryValues, else nil
}

// Found reports whether the entry carries values.
func (e Entry) Found() bool { return e.Kind == EntryValues }

// Table holds rendered values for the resolved signals at each sampling
// instant. Entries are in resolution order.
type Table struct {
	Times     []int64
	Timescale string
	Entries   []Entry
}

// Steps returns the number of sampling instants.
func (t *Table) Steps() int { return len(t.Times) }

// Signals returns the names of entries that carry values.
func (t *Table) Signals() []string {
	out := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Found() {
			out = append(out, e.Name)
		}
	}
	return out
}

// Missing returns the names of not-found entries.
func (t *Table) Missing() []string {
	out := make([]string, 0)
	for _, e := range t.Entries {
		if !e.Found() {
			out = append(out, e.Name)
		}
	}
	return out
}
