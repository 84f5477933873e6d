// SPDX-License-Identifier: AGPL-3.0-only

package platform

import "unsafe"

// addressTable remembers the size of every live block by address, so that
// callers of Free only need to supply the address. It is not safe for
// concurrent use; owners guard it with their own mutex.
//
// Zero-sized values may share an address, so each entry counts how many
// live blocks it stands for.
type addressTable struct {
	entries map[uintptr]addressEntry
	bytes   uint64
}

type addressEntry struct {
	size uint64
	refs int
}

func newAddressTable() addressTable {
	return addressTable{entries: map[uintptr]addressEntry{}}
}

func (t *addressTable) insert(p unsafe.Pointer, size uint64) {
	e := t.entries[uintptr(p)]
	e.size = size
	e.refs++
	t.entries[uintptr(p)] = e
	t.bytes += size
}

// remove forgets one block at p and returns its size. ok is false if p is unknown.
func (t *addressTable) remove(p unsafe.Pointer) (size uint64, ok bool) {
	e, ok := t.entries[uintptr(p)]
	if !ok {
		return 0, false
	}
	e.refs--
	if e.refs == 0 {
		delete(t.entries, uintptr(p))
	} else {
		t.entries[uintptr(p)] = e
	}
	t.bytes -= e.size
	return e.size, true
}

func (t *addressTable) len() int {
	n := 0
	for _, e := range t.entries {
		n += e.refs
	}
	return n
}
