// Package columnar implements the growable, typed, null-aware column buffers
// that COPY BINARY decoding writes into.
//
// # Overview
//
// A Set owns one Column per output column. All columns share a single row
// capacity that starts at StartingCapacity rows and doubles whenever another
// row would not fit, so an unknown-length stream can be decoded in one pass
// without ever counting rows up front. Buffers are allocated through an
// arrow memory.Allocator and reallocated in place on growth, preserving
// already-decoded rows.
//
// # Column layout
//
// Fixed-width columns store one element of Type.Size bytes per row in a
// values buffer. Variable-width columns (text, bytea) store int32 offsets,
// one per row plus a leading zero, next to a payload arena that holds every
// value's bytes back to back. Each column also keeps a one-byte-per-row
// validity mask: 1 for a decoded value, 0 for NULL.
//
// NULL fields still occupy an element slot. Numeric and bool slots are
// zeroed, temporal slots get the not-a-time sentinel, and variable-width
// rows repeat the previous offset so the arena stays dense.
//
// # Size arithmetic
//
// Every byte size derived from row counts or payload lengths goes through
// overflow-checked arithmetic. A computation that would wrap fails with a
// structured overflow error before any allocator call, so hostile streams
// cannot turn a huge length into a small buffer.
//
// # Ownership
//
// Buffers are reference counted. Set.Release drops the set's references;
// any arrow arrays built on top of the buffers keep them alive until those
// arrays are released in turn. The creator must release the set on success
// and on every error path alike; Release is idempotent, so a deferred call
// is safe next to an explicit one.
//
// # Usage
//
//	set, err := columnar.NewSet(mem, types)
//	if err != nil {
//		return err
//	}
//	for _, fields := range tuples {
//		row, err := set.BeginRow()
//		if err != nil {
//			set.Release()
//			return err
//		}
//		for i, payload := range fields {
//			col := set.Column(i)
//			if payload == nil {
//				col.SetNull(row)
//			} else if err := col.SetValue(row, payload); err != nil {
//				set.Release()
//				return err
//			}
//		}
//		set.CommitRow()
//	}
package columnar
