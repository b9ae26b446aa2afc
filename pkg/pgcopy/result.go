package pgcopy

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/columnar"
	"github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/pgtypes"
)

// Result owns the column buffers produced by one decode. Arrays built from
// a result share those buffers; reference counting keeps them alive until
// the result and every array are released.
type Result struct {
	mem      memory.Allocator
	set      *columnar.Set
	types    []*pgtypes.Type
	released bool
}

func newResult(mem memory.Allocator, set *columnar.Set, types []*pgtypes.Type) *Result {
	return &Result{mem: mem, set: set, types: types}
}

// NumRows returns the number of decoded rows.
func (r *Result) NumRows() int {
	return r.set.NumRows()
}

// NumCols returns the number of columns.
func (r *Result) NumCols() int {
	return r.set.NumCols()
}

// Type returns the type descriptor of column i.
func (r *Result) Type(i int) *pgtypes.Type {
	return r.types[i]
}

// NewArray builds the arrow array for column i. Value buffers are shared
// with the result, not copied; only the validity bitmap, and for bool
// columns the bit-packed values, are materialized here. The caller releases
// the returned array.
func (r *Result) NewArray(i int) (arrow.Array, error) {
	if r.released {
		return nil, errors.New(errors.ErrorTypeInternal, "result already released")
	}

	col := r.set.Column(i)
	typ := r.types[i]
	rows := r.set.NumRows()

	validity, nullCount := r.validityBitmap(col, rows)
	defer validity.Release()

	var buffers []*memory.Buffer
	switch {
	case typ.Variable():
		buffers = []*memory.Buffer{validity, col.Offsets(), col.Values()}
	case typ.ID == pgtypes.Bool:
		packed := r.packBits(col.Values().Bytes(), rows)
		defer packed.Release()
		buffers = []*memory.Buffer{validity, packed}
	default:
		buffers = []*memory.Buffer{validity, col.Values()}
	}

	data := array.NewData(typ.DataType, rows, buffers, nil, nullCount, 0)
	defer data.Release()

	return array.MakeFromData(data), nil
}

// MaskArray materializes column i's validity mask as a boolean array: true
// where the column holds a decoded value, false where the field was NULL.
func (r *Result) MaskArray(i int) (arrow.Array, error) {
	if r.released {
		return nil, errors.New(errors.ErrorTypeInternal, "result already released")
	}

	rows := r.set.NumRows()
	packed := r.packBits(r.set.Column(i).ValidBytes(), rows)
	defer packed.Release()

	data := array.NewData(arrow.FixedWidthTypes.Boolean, rows, []*memory.Buffer{nil, packed}, nil, 0, 0)
	defer data.Release()

	return array.MakeFromData(data), nil
}

// NewRecord builds a record over every column, naming column i names[i].
// Date columns are marked with unit=day field metadata since their values
// are day counts rather than a native arrow date unit. The caller releases
// the returned record.
func (r *Result) NewRecord(names []string) (arrow.Record, error) {
	if r.released {
		return nil, errors.New(errors.ErrorTypeInternal, "result already released")
	}
	if len(names) != r.NumCols() {
		return nil, errors.New(errors.ErrorTypeConfig, "column name count mismatch").
			WithDetail("got", len(names)).
			WithDetail("want", r.NumCols())
	}

	fields := make([]arrow.Field, r.NumCols())
	cols := make([]arrow.Array, r.NumCols())

	for i := range fields {
		arr, err := r.NewArray(i)
		if err != nil {
			for _, c := range cols[:i] {
				c.Release()
			}
			return nil, err
		}
		cols[i] = arr

		field := arrow.Field{Name: names[i], Type: r.types[i].DataType, Nullable: true}
		if r.types[i].ID == pgtypes.Date {
			field.Metadata = arrow.NewMetadata([]string{"unit"}, []string{"day"})
		}
		fields[i] = field
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(r.NumRows()))
	for _, c := range cols {
		c.Release()
	}
	return rec, nil
}

// Release drops the result's buffer references. Arrays built from the
// result stay valid until released themselves. Release is idempotent.
func (r *Result) Release() {
	if r.released {
		return
	}
	r.released = true
	r.set.Release()
}

func (r *Result) validityBitmap(col *columnar.Column, rows int) (*memory.Buffer, int) {
	buf := memory.NewResizableBuffer(r.mem)
	buf.Resize(int(bitutil.BytesForBits(int64(rows))))

	nulls := 0
	bits := buf.Bytes()
	for row, valid := range col.ValidBytes()[:rows] {
		if valid != 0 {
			bitutil.SetBit(bits, row)
		} else {
			bitutil.ClearBit(bits, row)
			nulls++
		}
	}
	return buf, nulls
}

func (r *Result) packBits(vals []byte, rows int) *memory.Buffer {
	buf := memory.NewResizableBuffer(r.mem)
	buf.Resize(int(bitutil.BytesForBits(int64(rows))))

	bits := buf.Bytes()
	for row := 0; row < rows; row++ {
		if vals[row] != 0 {
			bitutil.SetBit(bits, row)
		} else {
			bitutil.ClearBit(bits, row)
		}
	}
	return buf
}
