package pgcopy

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/pgtypes"
)

func TestResultZeroCopyBuffers(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	data := newStream().
		row(be64(1), []byte("one")).
		row(be64(2), []byte("two")).
		done()

	res, err := Decode(mem, data, []pgtypes.TypeID{pgtypes.Int64, pgtypes.Text})
	require.NoError(t, err)
	defer res.Release()

	ints := decodeArray(t, res, 0)
	defer ints.Release()
	texts := decodeArray(t, res, 1)
	defer texts.Release()

	// The arrays alias the decode buffers rather than copying them.
	assert.Same(t, res.set.Column(0).Values(), ints.Data().Buffers()[1])
	assert.Same(t, res.set.Column(1).Offsets(), texts.Data().Buffers()[1])
	assert.Same(t, res.set.Column(1).Values(), texts.Data().Buffers()[2])
}

func TestResultOutlivesRelease(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	data := newStream().
		row(be64(7), []byte("keep")).
		done()

	res, err := Decode(mem, data, []pgtypes.TypeID{pgtypes.Int64, pgtypes.Text})
	require.NoError(t, err)

	ints := decodeArray(t, res, 0).(*array.Int64)
	texts := decodeArray(t, res, 1).(*array.String)

	// Releasing the result must not invalidate arrays already built on the
	// shared buffers.
	res.Release()

	assert.Equal(t, int64(7), ints.Value(0))
	assert.Equal(t, "keep", texts.Value(0))

	ints.Release()
	texts.Release()
}

func TestResultReleaseIdempotent(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	res, err := Decode(mem, newStream().done(), []pgtypes.TypeID{pgtypes.Int32})
	require.NoError(t, err)

	res.Release()
	res.Release()

	_, err = res.NewArray(0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))

	_, err = res.NewRecord([]string{"a"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestResultMaskArray(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	data := newStream().
		row(be32(1)).
		row(nil).
		row(be32(3)).
		done()

	res, err := Decode(mem, data, []pgtypes.TypeID{pgtypes.Int32})
	require.NoError(t, err)
	defer res.Release()

	mask, err := res.MaskArray(0)
	require.NoError(t, err)
	defer mask.Release()

	bools := mask.(*array.Boolean)
	require.Equal(t, 3, bools.Len())
	assert.Equal(t, 0, bools.NullN())
	assert.True(t, bools.Value(0))
	assert.False(t, bools.Value(1))
	assert.True(t, bools.Value(2))
}

func TestResultNewRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	data := newStream().
		row(be64(1), []byte("a"), be32(0)).
		row(be64(2), nil, be32(1)).
		done()

	ids := []pgtypes.TypeID{pgtypes.Int64, pgtypes.Text, pgtypes.Date}
	res, err := Decode(mem, data, ids)
	require.NoError(t, err)
	defer res.Release()

	rec, err := res.NewRecord([]string{"id", "name", "day"})
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(2), rec.NumRows())
	require.Equal(t, int64(3), rec.NumCols())

	schema := rec.Schema()
	assert.Equal(t, "id", schema.Field(0).Name)
	assert.Equal(t, "name", schema.Field(1).Name)
	assert.Equal(t, "day", schema.Field(2).Name)

	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int64, schema.Field(0).Type))
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, schema.Field(1).Type))
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int64, schema.Field(2).Type))

	// Day-count columns are tagged so consumers can tell them apart from
	// plain int64.
	md := schema.Field(2).Metadata
	idx := md.FindKey("unit")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "day", md.Values()[idx])

	names := rec.Column(1).(*array.String)
	assert.Equal(t, "a", names.Value(0))
	assert.True(t, names.IsNull(1))
}

func TestResultNewRecordNameMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	res, err := Decode(mem, newStream().done(), []pgtypes.TypeID{pgtypes.Int32})
	require.NoError(t, err)
	defer res.Release()

	_, err = res.NewRecord([]string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestResultTypeAccessor(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	res, err := Decode(mem, newStream().done(), []pgtypes.TypeID{pgtypes.Bool, pgtypes.Bytea})
	require.NoError(t, err)
	defer res.Release()

	assert.Equal(t, pgtypes.Bool, res.Type(0).ID)
	assert.Equal(t, pgtypes.Bytea, res.Type(1).ID)
}
