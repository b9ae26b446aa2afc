package columnar

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/overflow"
	"github.com/ajitpratap0/quasar/pkg/pgtypes"
)

const (
	// StartingCapacity is the row capacity every column starts with.
	StartingCapacity = 4096
	// GrowthFactor is the multiplier applied to capacity when a set is full.
	GrowthFactor = 2
)

// Set owns the column buffers for one decode. All columns share a row
// capacity; BeginRow grows every column together when the next row would
// not fit.
type Set struct {
	columns  []*Column
	rows     int
	capacity int
	released bool
}

// NewSet allocates a buffer set with one column per type descriptor, each
// with StartingCapacity rows of room. Either every column is allocated or
// none is: a failure releases whatever was built before returning.
func NewSet(mem memory.Allocator, types []*pgtypes.Type) (*Set, error) {
	s := &Set{
		columns:  make([]*Column, 0, len(types)),
		capacity: StartingCapacity,
	}

	for _, typ := range types {
		col, err := newColumn(mem, typ, StartingCapacity)
		if err != nil {
			s.Release()
			return nil, err
		}
		s.columns = append(s.columns, col)
	}

	return s, nil
}

// NumCols returns the number of columns.
func (s *Set) NumCols() int {
	return len(s.columns)
}

// NumRows returns the number of committed rows.
func (s *Set) NumRows() int {
	return s.rows
}

// Capacity returns the allocated row capacity.
func (s *Set) Capacity() int {
	return s.capacity
}

// Column returns column i.
func (s *Set) Column(i int) *Column {
	return s.columns[i]
}

// BeginRow makes room for one more row, doubling every column's capacity
// if the set is full, and returns the row index to write. The row is not
// counted until CommitRow.
func (s *Set) BeginRow() (int, error) {
	if s.rows == s.capacity {
		if err := s.grow(); err != nil {
			return 0, err
		}
	}
	return s.rows, nil
}

// CommitRow marks the row returned by the last BeginRow as fully written.
func (s *Set) CommitRow() {
	s.rows++
}

func (s *Set) grow() error {
	newCap, ok := overflow.Mul(uint64(s.capacity), GrowthFactor)
	if !ok || newCap > math.MaxInt {
		return errors.New(errors.ErrorTypeOverflow, "row capacity overflows").
			WithDetail("capacity", s.capacity)
	}

	for _, col := range s.columns {
		if err := col.grow(int(newCap)); err != nil {
			return err
		}
	}

	s.capacity = int(newCap)
	return nil
}

// Release drops the set's buffer references. Arrays built on the buffers
// keep them alive independently. Release is idempotent.
func (s *Set) Release() {
	if s.released {
		return
	}
	s.released = true

	for _, col := range s.columns {
		col.release()
	}
}
