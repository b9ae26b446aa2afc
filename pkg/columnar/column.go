package columnar

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/overflow"
	"github.com/ajitpratap0/quasar/pkg/pgtypes"
)

// startingArenaBytes is the initial payload arena size for variable-width
// columns. The arena doubles whenever a payload does not fit.
const startingArenaBytes = 4096

// Column is one typed output column. Values are written row by row in
// increasing order; each row is either SetValue or SetNull exactly once.
type Column struct {
	typ *pgtypes.Type

	values  *memory.Buffer // fixed: capacity*Size bytes; variable: payload arena
	offsets *memory.Buffer // variable only: (capacity+1) int32 entries
	mask    *memory.Buffer // one validity byte per row

	used int // arena bytes in use
}

func newColumn(mem memory.Allocator, typ *pgtypes.Type, capacity int) (*Column, error) {
	var valueBytes, offsetBytes int
	var err error

	if typ.Variable() {
		valueBytes = startingArenaBytes
		if offsetBytes, err = offsetsSize(capacity); err != nil {
			return nil, err
		}
	} else {
		if valueBytes, err = checkedSize(capacity, typ.Size); err != nil {
			return nil, err
		}
	}

	c := &Column{typ: typ}
	c.values = memory.NewResizableBuffer(mem)
	c.values.Resize(valueBytes)

	if typ.Variable() {
		c.offsets = memory.NewResizableBuffer(mem)
		c.offsets.Resize(offsetBytes)
		arrow.Int32Traits.CastFromBytes(c.offsets.Bytes())[0] = 0
	}

	c.mask = memory.NewResizableBuffer(mem)
	c.mask.Resize(capacity)

	return c, nil
}

// Type returns the column's type descriptor.
func (c *Column) Type() *pgtypes.Type {
	return c.typ
}

// Values returns the values buffer: elements for fixed-width columns, the
// payload arena for variable-width ones.
func (c *Column) Values() *memory.Buffer {
	return c.values
}

// Offsets returns the int32 offsets buffer of a variable-width column, or
// nil for fixed-width columns.
func (c *Column) Offsets() *memory.Buffer {
	return c.offsets
}

// ValidBytes returns the validity mask, one byte per allocated row.
func (c *Column) ValidBytes() []byte {
	return c.mask.Bytes()
}

// SetValue decodes one field payload into row. Fixed-width payloads are
// converted through the type descriptor; variable-width payloads are copied
// into the arena verbatim.
func (c *Column) SetValue(row int, payload []byte) error {
	if c.typ.Variable() {
		return c.setBytes(row, payload)
	}

	slot := c.values.Bytes()[row*c.typ.Size : (row+1)*c.typ.Size]
	if err := c.typ.Decode(slot, payload); err != nil {
		return err
	}
	c.mask.Bytes()[row] = 1
	return nil
}

// SetNull marks row as NULL and writes the type's sentinel into its slot.
func (c *Column) SetNull(row int) {
	if c.typ.Variable() {
		offs := arrow.Int32Traits.CastFromBytes(c.offsets.Bytes())
		offs[row+1] = int32(c.used)
	} else {
		c.typ.WriteNull(c.values.Bytes()[row*c.typ.Size : (row+1)*c.typ.Size])
	}
	c.mask.Bytes()[row] = 0
}

func (c *Column) setBytes(row int, payload []byte) error {
	need, ok := overflow.Add(uint64(c.used), uint64(len(payload)))
	if !ok || need > math.MaxInt32 {
		return errors.New(errors.ErrorTypeOverflow, "payload arena exceeds offset range").
			WithDetail("type", c.typ.Name).
			WithDetail("used", c.used).
			WithDetail("payload", len(payload))
	}

	if int(need) > c.values.Len() {
		newSize := uint64(c.values.Len())
		for newSize < need {
			newSize, ok = overflow.Mul(newSize, 2)
			if !ok {
				return errors.New(errors.ErrorTypeOverflow, "payload arena growth overflows").
					WithDetail("type", c.typ.Name)
			}
		}
		c.values.Resize(int(newSize))
	}

	copy(c.values.Bytes()[c.used:need], payload)
	arrow.Int32Traits.CastFromBytes(c.offsets.Bytes())[row+1] = int32(need)
	c.mask.Bytes()[row] = 1
	c.used = int(need)
	return nil
}

// grow reallocates the column's buffers for newCapacity rows. Existing rows
// are preserved; the arena is untouched since it grows on demand.
func (c *Column) grow(newCapacity int) error {
	if c.typ.Variable() {
		offsetBytes, err := offsetsSize(newCapacity)
		if err != nil {
			return err
		}
		c.offsets.Resize(offsetBytes)
	} else {
		valueBytes, err := checkedSize(newCapacity, c.typ.Size)
		if err != nil {
			return err
		}
		c.values.Resize(valueBytes)
	}

	c.mask.Resize(newCapacity)
	return nil
}

func (c *Column) release() {
	if c.values != nil {
		c.values.Release()
		c.values = nil
	}
	if c.offsets != nil {
		c.offsets.Release()
		c.offsets = nil
	}
	if c.mask != nil {
		c.mask.Release()
		c.mask = nil
	}
}

// checkedSize returns rows*width, failing instead of wrapping.
func checkedSize(rows, width int) (int, error) {
	n, ok := overflow.Mul(uint64(rows), uint64(width))
	if !ok || n > math.MaxInt {
		return 0, errors.New(errors.ErrorTypeOverflow, "buffer size computation overflows").
			WithDetail("rows", rows).
			WithDetail("width", width)
	}
	return int(n), nil
}

// offsetsSize returns (rows+1)*4, failing instead of wrapping.
func offsetsSize(rows int) (int, error) {
	entries, ok := overflow.Add(uint64(rows), 1)
	if !ok {
		return 0, errors.New(errors.ErrorTypeOverflow, "offset count overflows").
			WithDetail("rows", rows)
	}
	n, ok := overflow.Mul(entries, 4)
	if !ok || n > math.MaxInt {
		return 0, errors.New(errors.ErrorTypeOverflow, "offset buffer size overflows").
			WithDetail("rows", rows)
	}
	return int(n), nil
}
