// Package json provides high-performance JSON serialization on top of
// goccy/go-json, with pooled buffers and a streaming encoder used when
// exporting decoded rows.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// bufferPool recycles scratch buffers for in-memory marshaling.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// NewEncoder returns an encoder writing to w, configured for throughput.
// goccy binds the writer at construction, so encoders are created per
// use and only the underlying buffers are pooled.
func NewEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// NewDecoder returns a decoder reading from r. Numbers decode as
// json.Number so int64 values survive the trip.
func NewDecoder(r io.Reader) *gojson.Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// Marshal is a high-performance drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a high-performance drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a high-performance replacement for json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// StreamingEncoder writes a sequence of values as either one JSON array
// or line-delimited JSON, without holding the whole sequence in memory.
type StreamingEncoder struct {
	writer      io.Writer
	encoder     *gojson.Encoder
	firstRecord bool
	isArray     bool
}

// NewStreamingEncoder creates a new streaming encoder. With isArray set,
// values are wrapped in a JSON array; otherwise each value lands on its
// own line (JSONL).
func NewStreamingEncoder(w io.Writer, isArray bool) *StreamingEncoder {
	se := &StreamingEncoder{
		writer:      w,
		encoder:     NewEncoder(w),
		firstRecord: true,
		isArray:     isArray,
	}

	if isArray {
		w.Write([]byte{'['})
	}

	return se
}

// Encode encodes a single value
func (se *StreamingEncoder) Encode(v interface{}) error {
	if se.isArray {
		if !se.firstRecord {
			se.writer.Write([]byte{','})
		}
		se.firstRecord = false
	}

	// For line-delimited JSON the trailing newline from Encode is the
	// separator; for array format separators are written above.
	return se.encoder.Encode(v)
}

// Close finalizes the encoding
func (se *StreamingEncoder) Close() error {
	if se.isArray {
		se.writer.Write([]byte{']'})
	}
	return nil
}
