// Package symbol implements the process-wide (per-compiler-instance)
// symbol table: it interns identifier names to stable, non-negative,
// never-reused integer ids.
package symbol

import "github.com/dolthub/swiss"

// ID is an interned symbol id. IDs are assigned in creation order starting
// at 0 and are never reused or renumbered.
type ID uint32

// Table interns names to IDs and back. It outlives any single compilation
// and is shared by the runtime and comptime sides of a compile-state pair,
// since symbol identity must be process-global.
//
// The name->id side is backed by a Swiss-table hash map rather than a
// byte-trie: any associative container with the same intern/lookup
// contract works here, and the hash map is the one already wired
// elsewhere in this codebase.
type Table struct {
	byName *swiss.Map[string, ID]
	byID []string
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{byName: swiss.NewMap[string, ID](64)}
}

// Intern returns the existing id for name if already known, otherwise it
// allocates and returns a new id. Never returns a negative value (IDs are
// unsigned).
func (t *Table) Intern(name string) ID {
	if id, ok := t.byName.Get(name); ok {
		return id
	}
	id := ID(len(t.byID))
	t.byID = append(t.byID, name)
	t.byName.Put(name, id)
	return id
}

// Lookup returns the id for name without interning it. The second result
// is false if name has never been interned.
func (t *Table) Lookup(name string) (ID, bool) {
	return t.byName.Get(name)
}

// Name returns the interned name for id. It panics if id was never
// allocated by this table, which would indicate a buffer-overflow class
// internal error.
func (t *Table) Name(id ID) string {
	return t.byID[id]
}

// Len returns the number of interned symbols.
func (t *Table) Len() int { return len(t.byID) }
