package pgtypes

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

func TestFromOID(t *testing.T) {
	tests := []struct {
		oid  uint32
		want TypeID
	}{
		{pgtype.BoolOID, Bool},
		{pgtype.ByteaOID, Bytea},
		{pgtype.QCharOID, Text},
		{pgtype.NameOID, Text},
		{pgtype.Int8OID, Int64},
		{pgtype.Int2OID, Int16},
		{pgtype.Int4OID, Int32},
		{pgtype.TextOID, Text},
		{pgtype.Float4OID, Float32},
		{pgtype.Float8OID, Float64},
		{pgtype.BPCharOID, Text},
		{pgtype.VarcharOID, Text},
		{pgtype.DateOID, Date},
		{pgtype.TimestampOID, Timestamp},
		{pgtype.TimestamptzOID, Timestamp},
	}

	for _, tt := range tests {
		typ, err := FromOID(tt.oid)
		require.NoError(t, err, "oid %d", tt.oid)
		assert.Equal(t, tt.want, typ.ID, "oid %d", tt.oid)
	}
}

func TestFromOIDUnknown(t *testing.T) {
	// uuid columns are not decodable.
	_, err := FromOID(2950)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnknownType))
}

func TestSupportedOIDs(t *testing.T) {
	oids := SupportedOIDs()
	assert.Len(t, oids, len(oidTypes))

	for _, oid := range oids {
		_, err := FromOID(oid)
		assert.NoError(t, err)
	}
}
