// Package resource implements the per-store resource handle table: the
// rep/handle translation design note from the spec's design notes section.
// A HostRep is the canonical, store-independent representation of a
// resource; a Table maps between a store's locally-issued handles and
// HostReps, and is the only thing that ever crosses a store boundary when
// a resource does.
package resource

import "fmt"

// HostRep is the canonical representation of a resource instance,
// independent of any store's handle numbering. Two handles in different
// stores that translate to the same HostRep refer to the same underlying
// resource.
type HostRep uint64

// Ownership records how a handle entry was acquired, so Table knows
// whether to translate it as an own transfer or a scoped borrow when it
// crosses into another store.
type Ownership int

const (
	Owned Ownership = iota
	Borrowed
)

type entry struct {
	rep          HostRep
	resourceName string
	ownership    Ownership
}

// Table is a single store's resource handle table: local handle ids map
// to entries; it is not safe for concurrent use, matching the single
// host thread invariant dispatch relies on.
type Table struct {
	nextHandle uint32
	entries    map[uint32]entry
	nextRep    *HostRep // shared counter across the tree's tables, when non-nil
}

// NewTable creates an empty table. repCounter, when non-nil, is a shared
// counter so reps minted across every store in a tree stay globally
// unique; a nil counter makes this table mint its own, which is correct
// only for a standalone table used in isolation (tests).
func NewTable(repCounter *HostRep) *Table {
	return &Table{entries: make(map[uint32]entry), nextRep: repCounter}
}

func (t *Table) mintRep() HostRep {
	if t.nextRep == nil {
		local := HostRep(0)
		t.nextRep = &local
	}
	*t.nextRep++
	return *t.nextRep
}

// NewOwn registers a newly constructed resource, minting a fresh rep, and
// returns the local handle referring to it.
func (t *Table) NewOwn(resourceName string) (uint32, HostRep) {
	rep := t.mintRep()
	h := t.allocHandle(entry{rep: rep, resourceName: resourceName, ownership: Owned})
	return h, rep
}

// Rep resolves a local handle to its canonical rep, reporting whether the
// handle exists in this table.
func (t *Table) Rep(handle uint32) (HostRep, bool) {
	e, ok := t.entries[handle]
	if !ok {
		return 0, false
	}
	return e.rep, true
}

// NewBorrow registers a borrow of rep, aliasing a resource owned by some
// other table, scoped to the caller's use; Release must be called at the
// end of that scope (the call that received the borrow).
func (t *Table) NewBorrow(resourceName string, rep HostRep) uint32 {
	return t.allocHandle(entry{rep: rep, resourceName: resourceName, ownership: Borrowed})
}

// TransferOwn moves an owned resource from t into dst, invalidating the
// handle in t and returning the new handle minted in dst. It panics if
// handle does not refer to an owned entry in t — the loader and shim
// layers only ever call this after confirming ownership via Rep plus
// their own bookkeeping.
func (t *Table) TransferOwn(dst *Table, handle uint32) uint32 {
	e, ok := t.entries[handle]
	if !ok || e.ownership != Owned {
		panic(fmt.Sprintf("resource: TransferOwn: handle %d is not an owned entry", handle))
	}
	delete(t.entries, handle)
	return dst.allocHandle(entry{rep: e.rep, resourceName: e.resourceName, ownership: Owned})
}

// Release drops a handle from the table: for a borrow this ends the
// scope; for an own this is the host or guest explicitly dropping the
// resource.
func (t *Table) Release(handle uint32) {
	delete(t.entries, handle)
}

// ReleaseScope releases every handle in handles in one pass; used by the
// shim to drop a call's borrows when the call ends, and by the dispatcher
// to drop the own handles a dispatched call returned before Dispatch
// returns.
func (t *Table) ReleaseScope(handles []uint32) {
	for _, h := range handles {
		t.Release(h)
	}
}

// ResourceName reports the resource type name a handle was registered
// under. Handle translation does not check it against any interface.
func (t *Table) ResourceName(handle uint32) (string, bool) {
	e, ok := t.entries[handle]
	if !ok {
		return "", false
	}
	return e.resourceName, true
}

// Len reports the number of live entries, used by tests asserting bounded
// table growth.
func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) allocHandle(e entry) uint32 {
	t.nextHandle++
	h := t.nextHandle
	t.entries[h] = e
	return h
}
