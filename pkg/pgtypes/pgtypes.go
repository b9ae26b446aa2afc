// Package pgtypes defines the fixed registry of PostgreSQL column types the
// COPY BINARY decoder understands, and the conversion from each type's wire
// encoding to its in-memory element layout.
//
// Every type is described by a Type descriptor: its element width in column
// storage, the payload length it expects on the wire, the Arrow type decoded
// values carry, and the sentinel written for NULL fields. Fixed-width values
// arrive big-endian and are stored native-endian; temporal values are shifted
// from the PostgreSQL epoch (2000-01-01) to the Unix epoch at decode time.
package pgtypes

import (
	"encoding/binary"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

// TypeID identifies a registered column type.
type TypeID uint16

// Registered type ids. The numbering is part of the decoder's public
// contract and never changes.
const (
	Int16 TypeID = iota
	Int32
	Int64
	Float32
	Float64
	Bool
	Text
	Timestamp
	Date
	Bytea

	// NumTypes is the number of registered types.
	NumTypes = int(Bytea) + 1
)

// Variable marks types whose payload length is not fixed.
const Variable = -1

// Epoch shifts between PostgreSQL's 2000-01-01 reference and the Unix epoch.
const (
	microsecFromUnixEpochToY2K int64 = 946684800 * 1000000
	daysFromUnixEpochToY2K     int64 = 10957
)

// nullTimestamp is the not-a-time sentinel stored for NULL temporal fields.
var nullTimestamp = int64(-1 << 63)

// Type describes one registered column type.
type Type struct {
	ID       TypeID
	Name     string
	Size     int            // bytes per element in column storage; 0 for variable width
	WireSize int            // expected field payload length, or Variable
	DataType arrow.DataType // Arrow type of decoded values

	decode func(dst, src []byte)
	null   [8]byte // sentinel copied into a slot for NULL fields
}

var registry = [NumTypes]Type{
	{ID: Int16, Name: "int2", Size: 2, WireSize: 2, DataType: arrow.PrimitiveTypes.Int16, decode: decodeInt16},
	{ID: Int32, Name: "int4", Size: 4, WireSize: 4, DataType: arrow.PrimitiveTypes.Int32, decode: decodeInt32},
	{ID: Int64, Name: "int8", Size: 8, WireSize: 8, DataType: arrow.PrimitiveTypes.Int64, decode: decodeInt64},
	{ID: Float32, Name: "float4", Size: 4, WireSize: 4, DataType: arrow.PrimitiveTypes.Float32, decode: decodeInt32},
	{ID: Float64, Name: "float8", Size: 8, WireSize: 8, DataType: arrow.PrimitiveTypes.Float64, decode: decodeInt64},
	{ID: Bool, Name: "bool", Size: 1, WireSize: 1, DataType: arrow.FixedWidthTypes.Boolean, decode: decodeByte},
	{ID: Text, Name: "text", Size: 0, WireSize: Variable, DataType: arrow.BinaryTypes.String},
	{ID: Timestamp, Name: "timestamp", Size: 8, WireSize: 8, DataType: &arrow.TimestampType{Unit: arrow.Microsecond}, decode: decodeTimestamp},
	{ID: Date, Name: "date", Size: 8, WireSize: 4, DataType: arrow.PrimitiveTypes.Int64, decode: decodeDate},
	{ID: Bytea, Name: "bytea", Size: 0, WireSize: Variable, DataType: arrow.BinaryTypes.Binary},
}

func init() {
	for id := range registry {
		t := &registry[id]
		if t.ID == Timestamp || t.ID == Date {
			binary.NativeEndian.PutUint64(t.null[:], uint64(nullTimestamp))
		}
	}
}

// ByID returns the descriptor for id.
func ByID(id TypeID) (*Type, error) {
	if int(id) >= NumTypes {
		return nil, errors.New(errors.ErrorTypeUnknownType, "unregistered type id").
			WithDetail("type_id", id)
	}
	return &registry[id], nil
}

// ByName returns the descriptor whose PostgreSQL name matches name.
func ByName(name string) (*Type, error) {
	for id := range registry {
		if registry[id].Name == name {
			return &registry[id], nil
		}
	}
	return nil, errors.New(errors.ErrorTypeUnknownType, "unregistered type name").
		WithDetail("name", name)
}

// Types returns all registered descriptors in id order.
func Types() []*Type {
	out := make([]*Type, NumTypes)
	for id := range registry {
		out[id] = &registry[id]
	}
	return out
}

// Variable reports whether the type's wire payload has no fixed length.
func (t *Type) Variable() bool {
	return t.WireSize == Variable
}

// Decode converts one big-endian wire payload into the element slot dst.
// dst must be Size bytes. Variable-width types never reach Decode, their
// payloads are stored verbatim.
func (t *Type) Decode(dst, src []byte) error {
	if len(src) != t.WireSize {
		return errors.New(errors.ErrorTypeTypeMismatch, "field length contradicts column type").
			WithDetail("type", t.Name).
			WithDetail("got", len(src)).
			WithDetail("want", t.WireSize)
	}
	t.decode(dst, src)
	return nil
}

// WriteNull stores the type's NULL sentinel into the element slot dst.
// Numeric and bool slots get zeros, temporal slots get not-a-time.
func (t *Type) WriteNull(dst []byte) {
	copy(dst, t.null[:t.Size])
}

func decodeInt16(dst, src []byte) {
	binary.NativeEndian.PutUint16(dst, binary.BigEndian.Uint16(src))
}

// decodeInt32 also covers float4: the payload is the IEEE bit pattern, so a
// byte-order swap is the whole conversion.
func decodeInt32(dst, src []byte) {
	binary.NativeEndian.PutUint32(dst, binary.BigEndian.Uint32(src))
}

// decodeInt64 also covers float8.
func decodeInt64(dst, src []byte) {
	binary.NativeEndian.PutUint64(dst, binary.BigEndian.Uint64(src))
}

func decodeByte(dst, src []byte) {
	dst[0] = src[0]
}

func decodeTimestamp(dst, src []byte) {
	us := int64(binary.BigEndian.Uint64(src)) + microsecFromUnixEpochToY2K
	binary.NativeEndian.PutUint64(dst, uint64(us))
}

// decodeDate widens the wire's 32-bit day count to 64 bits before shifting
// epochs, so dates far from 1970 survive the move.
func decodeDate(dst, src []byte) {
	days := int64(int32(binary.BigEndian.Uint32(src))) + daysFromUnixEpochToY2K
	binary.NativeEndian.PutUint64(dst, uint64(days))
}
