package pgcopy

import (
	"bytes"
	"math"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/columnar"
	"github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/pgtypes"
)

// signature opens every COPY BINARY stream, trailing NUL included.
var signature = []byte("PGCOPY\n\xff\r\n\x00")

// hasOIDsFlag is the only header flag the decoder accepts. When set, each
// tuple carries a row OID before its fields.
const hasOIDsFlag = uint32(1) << 16

const (
	// endOfStream is the field count that terminates the tuple sequence.
	endOfStream = int16(-1)
	// nullField is the field length marking a NULL value.
	nullField = int32(-1)
)

// maxColumns is the largest column count a tuple header can declare, since
// field counts travel as 16-bit signed integers.
const maxColumns = math.MaxInt16

// Decode parses a complete COPY BINARY stream into column buffers, one
// column per type id. Buffers are allocated from mem and grow as tuples
// arrive. On success the returned Result owns the buffers and must be
// released by the caller; on error everything allocated is released before
// returning. Bytes after the stream terminator are ignored.
func Decode(mem memory.Allocator, data []byte, ids []pgtypes.TypeID) (*Result, error) {
	if len(ids) > maxColumns {
		return nil, errors.New(errors.ErrorTypeConfig, "column count exceeds COPY BINARY limit").
			WithDetail("columns", len(ids)).
			WithDetail("limit", maxColumns)
	}

	types := make([]*pgtypes.Type, len(ids))
	for i, id := range ids {
		typ, err := pgtypes.ByID(id)
		if err != nil {
			return nil, errors.Wrap(err, errors.Type(err), "resolve column type").
				WithDetail("column", i)
		}
		types[i] = typ
	}

	cur := &cursor{buf: data}
	hasOIDs, err := readHeader(cur)
	if err != nil {
		return nil, err
	}

	set, err := columnar.NewSet(mem, types)
	if err != nil {
		return nil, err
	}

	if err := decodeTuples(cur, set, types, hasOIDs); err != nil {
		set.Release()
		return nil, err
	}

	return newResult(mem, set, types), nil
}

// readHeader consumes the signature, flags, and extension area, and reports
// whether tuples carry row OIDs.
func readHeader(cur *cursor) (bool, error) {
	sig, err := cur.take(len(signature))
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeMalformed, "truncated signature")
	}
	if !bytes.Equal(sig, signature) {
		return false, errors.New(errors.ErrorTypeMalformed, "stream does not start with COPY BINARY signature")
	}

	flags, err := cur.uint32()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeMalformed, "truncated header flags")
	}
	if flags&^hasOIDsFlag != 0 {
		return false, errors.New(errors.ErrorTypeMalformed, "unsupported header flags").
			WithDetail("flags", flags)
	}

	extension, err := cur.uint32()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeMalformed, "truncated extension length")
	}
	if extension != 0 {
		return false, errors.New(errors.ErrorTypeMalformed, "unexpected header extension").
			WithDetail("length", extension)
	}

	return flags&hasOIDsFlag != 0, nil
}

// decodeTuples runs the tuple loop until the end-of-stream marker. The set
// stays internally consistent on error; the caller releases it.
func decodeTuples(cur *cursor, set *columnar.Set, types []*pgtypes.Type, hasOIDs bool) error {
	for {
		fieldCount, err := cur.int16()
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeMalformed, "truncated tuple header").
				WithDetail("row", set.NumRows())
		}
		if fieldCount == endOfStream {
			return nil
		}
		if int(fieldCount) != len(types) {
			return errors.New(errors.ErrorTypeStructural, "row field count mismatch").
				WithDetail("row", set.NumRows()).
				WithDetail("got", fieldCount).
				WithDetail("want", len(types))
		}

		row, err := set.BeginRow()
		if err != nil {
			return err
		}

		if hasOIDs {
			if _, err := cur.take(4); err != nil {
				return errors.Wrap(err, errors.ErrorTypeMalformed, "truncated row OID").
					WithDetail("row", row)
			}
		}

		for i := range types {
			fieldLen, err := cur.int32()
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeMalformed, "truncated field header").
					WithDetail("row", row).
					WithDetail("column", i)
			}

			switch {
			case fieldLen == nullField:
				set.Column(i).SetNull(row)

			case fieldLen < 0:
				return errors.New(errors.ErrorTypeMalformed, "negative field length").
					WithDetail("row", row).
					WithDetail("column", i).
					WithDetail("length", fieldLen)

			default:
				payload, err := cur.take(int(fieldLen))
				if err != nil {
					return errors.Wrap(err, errors.ErrorTypeBounds, "field payload extends past end of input").
						WithDetail("row", row).
						WithDetail("column", i)
				}
				if err := set.Column(i).SetValue(row, payload); err != nil {
					return errors.Wrap(err, errors.Type(err), "decode field").
						WithDetail("row", row).
						WithDetail("column", i)
				}
			}
		}

		set.CommitRow()
	}
}
