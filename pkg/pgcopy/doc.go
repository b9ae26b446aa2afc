// Package pgcopy decodes the PostgreSQL COPY BINARY wire format into typed,
// null-aware column buffers that hand off to Arrow arrays without copying.
//
// # Wire format
//
// A COPY BINARY stream is an 11-byte signature, a 32-bit flags word, a
// 32-bit extension length, then a sequence of tuples. Each tuple is a
// 16-bit field count followed by one length-prefixed field per column,
// where a length of -1 marks NULL. A field count of -1 terminates the
// stream. All integers are big-endian.
//
// Decode verifies the signature byte for byte, accepts only the flag bit
// announcing row OIDs, requires an empty extension area, and checks every
// tuple's field count against the declared column list. Field payloads are
// converted by the type registry in pgtypes and written into a columnar
// buffer set that doubles its row capacity as tuples arrive, so streams of
// unknown length decode in a single pass.
//
// # Safety
//
// All reads go through a bounds-checked cursor and every size computed
// from wire data uses overflow-checked arithmetic. A malformed, truncated,
// or hostile stream produces a structured error naming the offending row
// and column; on every error path the partially filled buffers are
// released before Decode returns.
//
// # Results
//
// A successful decode returns a Result owning the column buffers. Arrays
// built from a Result share the decoded buffers instead of copying them,
// and reference counting keeps the buffers alive until both the Result and
// every array built from it are released:
//
//	res, err := pgcopy.Decode(mem, data, ids)
//	if err != nil {
//		return err
//	}
//	defer res.Release()
//
//	arr, err := res.NewArray(0)
//	if err != nil {
//		return err
//	}
//	defer arr.Release()
//
// Timestamps are shifted to Unix-epoch microseconds and dates to
// Unix-epoch days during decoding, so the handed-off buffers need no
// further conversion.
package pgcopy
