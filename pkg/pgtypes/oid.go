package pgtypes

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

// oidTypes maps PostgreSQL type OIDs onto registered decoder types. Every
// character-like OID decodes as text; timestamptz decodes like timestamp
// since the wire value is UTC microseconds either way.
var oidTypes = map[uint32]TypeID{
	pgtype.BoolOID:        Bool,
	pgtype.ByteaOID:       Bytea,
	pgtype.QCharOID:       Text,
	pgtype.NameOID:        Text,
	pgtype.Int8OID:        Int64,
	pgtype.Int2OID:        Int16,
	pgtype.Int4OID:        Int32,
	pgtype.TextOID:        Text,
	pgtype.Float4OID:      Float32,
	pgtype.Float8OID:      Float64,
	pgtype.BPCharOID:      Text,
	pgtype.VarcharOID:     Text,
	pgtype.DateOID:        Date,
	pgtype.TimestampOID:   Timestamp,
	pgtype.TimestamptzOID: Timestamp,
}

// FromOID returns the descriptor for a PostgreSQL type OID.
func FromOID(oid uint32) (*Type, error) {
	id, ok := oidTypes[oid]
	if !ok {
		return nil, errors.New(errors.ErrorTypeUnknownType, "no registered type for OID").
			WithDetail("oid", oid)
	}
	return &registry[id], nil
}

// SupportedOIDs returns the OIDs FromOID accepts, in no particular order.
func SupportedOIDs() []uint32 {
	oids := make([]uint32, 0, len(oidTypes))
	for oid := range oidTypes {
		oids = append(oids, oid)
	}
	return oids
}
