// SPDX-License-Identifier: AGPL-3.0-only

// Package alloc provides Allocator, a typed allocator for containers that
// manage their own storage.
//
// Acquiring storage and constructing values are separate steps. AcquireN
// returns storage for count values without constructing any of them; the
// caller then constructs and destroys individual values in it, and releases
// the storage once every value it constructed has been destroyed. The
// allocator does not track which slots hold live values: that bookkeeping
// belongs to the container.
//
// An Allocator adds no synchronization of its own. Acquire and Release are
// as safe for concurrent use as the platform behind them; constructing or
// destroying the same slot from multiple goroutines is a data race.
package alloc
