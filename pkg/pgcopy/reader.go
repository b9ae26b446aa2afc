package pgcopy

import (
	"encoding/binary"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

// cursor is a bounds-checked reader over the input buffer. Every take
// validates the remaining length first, so no read can run past the end of
// the stream. Returned slices alias the input; nothing is copied.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

// take consumes n bytes and returns them as a view into the input.
func (c *cursor) take(n int) ([]byte, error) {
	if n > c.remaining() {
		return nil, errors.New(errors.ErrorTypeBounds, "read past end of input").
			WithDetail("offset", c.off).
			WithDetail("need", n).
			WithDetail("remaining", c.remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// peekInt16 reads the next big-endian int16 without advancing the cursor.
func (c *cursor) peekInt16() (int16, error) {
	if c.remaining() < 2 {
		return 0, errors.New(errors.ErrorTypeBounds, "read past end of input").
			WithDetail("offset", c.off).
			WithDetail("need", 2).
			WithDetail("remaining", c.remaining())
	}
	return int16(binary.BigEndian.Uint16(c.buf[c.off:])), nil
}

func (c *cursor) int16() (int16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (c *cursor) int32() (int32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (c *cursor) uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
