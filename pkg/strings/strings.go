// Package strings provides zero-copy string utilities with pooling for Quasar.
//
// SQL assembly in the query layer, compression scratch buffers, and error
// formatting all build strings on hot paths; the pooled builders here keep
// those allocations off the per-call profile.
package strings

import (
	"fmt"
	"sync"
	"unsafe"
)

// BytesToString converts byte slice to string without allocation.
// WARNING: The returned string shares memory with the byte slice.
// Do not modify the byte slice after calling this function.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// StringToBytes converts string to byte slice without allocation.
// WARNING: The returned byte slice shares memory with the string.
// Do not modify the returned slice.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Clone creates a copy of a string (useful when you need to own the memory).
func Clone(s string) string {
	if len(s) == 0 {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, StringToBytes(s))
	return BytesToString(b)
}

// Builder provides efficient string building with zero-copy operations
type Builder struct {
	buf []byte
}

// NewBuilder creates a new string builder
func NewBuilder(capacity int) *Builder {
	return &Builder{
		buf: make([]byte, 0, capacity),
	}
}

// WriteString appends a string to the builder
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, StringToBytes(s)...)
}

// WriteByte appends a single byte. The error is always nil.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Write implements io.Writer interface
func (b *Builder) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the built string using zero-copy conversion
func (b *Builder) String() string {
	return BytesToString(b.buf)
}

// Bytes returns the underlying byte slice
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Len returns the length of the built string
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset resets the builder for reuse
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// Global pools for different string building scenarios
var (
	// Small strings (< 1KB) - error messages, identifiers
	smallBuilderPool = &sync.Pool{
		New: func() interface{} {
			return NewBuilder(1024) // 1KB
		},
	}

	// Large strings (1KB+) - rendered rows, diagnostics dumps
	largeBuilderPool = &sync.Pool{
		New: func() interface{} {
			return NewBuilder(16 * 1024) // 16KB
		},
	}
)

// BuilderSize represents different builder sizes
type BuilderSize int

const (
	Small BuilderSize = iota // < 1KB
	Large                    // 1KB+
)

// GetBuilder retrieves a pooled builder of the specified size
func GetBuilder(size BuilderSize) *Builder {
	var pool *sync.Pool
	switch size {
	case Large:
		pool = largeBuilderPool
	default:
		pool = smallBuilderPool
	}

	builder := pool.Get().(*Builder)
	builder.Reset()
	return builder
}

// PutBuilder returns a builder to the appropriate pool
func PutBuilder(builder *Builder, size BuilderSize) {
	if builder == nil {
		return
	}

	var pool *sync.Pool
	switch size {
	case Large:
		pool = largeBuilderPool
	default:
		pool = smallBuilderPool
	}

	builder.Reset()
	pool.Put(builder)
}

// Sprintf provides a pooled alternative to fmt.Sprintf
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	size := Small
	if len(format)+len(args)*16 > 1024 {
		size = Large
	}

	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	fmt.Fprintf(builder, format, args...)

	return Clone(builder.String())
}

// BuildString provides a simple way to build strings with a function
func BuildString(fn func(*Builder)) string {
	builder := GetBuilder(Small)
	defer PutBuilder(builder, Small)

	fn(builder)
	return Clone(builder.String())
}
