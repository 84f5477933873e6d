// SPDX-License-Identifier: AGPL-3.0-only

// Package lifecycle brings values into and out of existence at caller-chosen
// addresses. It never acquires or releases memory: the storage behind every
// pointer it is given belongs to the caller.
//
// Element types opt into custom behaviour by implementing hooks on their
// pointer receiver: Destroyer for teardown, Initializer for default
// construction, Copier and Mover for copy and move construction. A type
// needs teardown when it implements Destroyer or holds, in a struct field or
// an array element, a value that needs teardown. Every other type is
// trivially destructible, and destroying it (one value or a whole run)
// executes nothing.
package lifecycle
