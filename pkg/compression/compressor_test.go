package compression

import (
	"bytes"
	"io"
	"testing"
)

// dumpPayload builds a byte stream shaped like a binary dump: a short
// header followed by repetitive fixed-width records, which every codec
// should shrink.
func dumpPayload() []byte {
	var buf bytes.Buffer
	buf.WriteString("PGCOPY\n\xff\r\n\x00")
	record := []byte{0x00, 0x03, 0x00, 0x00, 0x00, 0x08, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	for i := 0; i < 500; i++ {
		buf.Write(record)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	original := dumpPayload()

	for _, algo := range []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2} {
		t.Run(string(algo), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: algo, Level: Default})
			if err != nil {
				t.Fatalf("Failed to create compressor: %v", err)
			}

			compressed, err := comp.Compress(original)
			if err != nil {
				t.Fatalf("Failed to compress: %v", err)
			}

			decompressed, err := comp.Decompress(compressed)
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}

			if !bytes.Equal(original, decompressed) {
				t.Errorf("Decompressed data doesn't match original")
			}

			if algo != None && len(compressed) >= len(original) {
				t.Errorf("Compressed size (%d) is not smaller than original (%d)",
					len(compressed), len(original))
			}

			if comp.Algorithm() != algo {
				t.Errorf("Algorithm() = %v, want %v", comp.Algorithm(), algo)
			}
		})
	}
}

func TestRoundTripStream(t *testing.T) {
	original := dumpPayload()

	for _, algo := range []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2} {
		t.Run(string(algo), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: algo, Level: Default})
			if err != nil {
				t.Fatalf("Failed to create compressor: %v", err)
			}

			var compressed bytes.Buffer
			if err := comp.CompressStream(&compressed, bytes.NewReader(original)); err != nil {
				t.Fatalf("Failed to compress stream: %v", err)
			}

			var decompressed bytes.Buffer
			if err := comp.DecompressStream(&decompressed, &compressed); err != nil {
				t.Fatalf("Failed to decompress stream: %v", err)
			}

			if !bytes.Equal(original, decompressed.Bytes()) {
				t.Errorf("Stream decompressed data doesn't match original")
			}
		})
	}
}

func TestCompressionLevels(t *testing.T) {
	levels := []Level{Fastest, Default, Better, Best}
	testData := dumpPayload()

	for _, algo := range []Algorithm{Gzip, LZ4, Zstd} {
		for _, level := range levels {
			t.Run(string(algo)+"/"+level.String(), func(t *testing.T) {
				comp, err := NewCompressor(&Config{Algorithm: algo, Level: level})
				if err != nil {
					t.Fatalf("Failed to create compressor: %v", err)
				}

				compressed, err := comp.Compress(testData)
				if err != nil {
					t.Fatalf("Failed to compress: %v", err)
				}

				decompressed, err := comp.Decompress(compressed)
				if err != nil {
					t.Fatalf("Failed to decompress: %v", err)
				}

				if !bytes.Equal(testData, decompressed) {
					t.Errorf("Decompressed data doesn't match original for level %v", level)
				}
			})
		}
	}
}

func TestDetectAlgorithm(t *testing.T) {
	cases := []struct {
		path string
		want Algorithm
	}{
		{"events.bin", None},
		{"events.bin.gz", Gzip},
		{"events.bin.GZ", Gzip},
		{"events.bin.gzip", Gzip},
		{"events.bin.zst", Zstd},
		{"events.bin.zstd", Zstd},
		{"events.bin.lz4", LZ4},
		{"events.bin.sz", Snappy},
		{"events.bin.snappy", Snappy},
		{"events.bin.s2", S2},
		{"/var/dumps/2024/orders.bin.zst", Zstd},
		{"events", None},
		{"", None},
	}

	for _, tc := range cases {
		if got := DetectAlgorithm(tc.path); got != tc.want {
			t.Errorf("DetectAlgorithm(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestNewCompressorDefaults(t *testing.T) {
	comp, err := NewCompressor(nil)
	if err != nil {
		t.Fatalf("Failed to create default compressor: %v", err)
	}
	if comp.Algorithm() != Zstd {
		t.Errorf("default algorithm = %v, want %v", comp.Algorithm(), Zstd)
	}
	if comp.Level() != Default {
		t.Errorf("default level = %v, want %v", comp.Level(), Default)
	}
}

func TestNewCompressorUnknown(t *testing.T) {
	if _, err := NewCompressor(&Config{Algorithm: "brotli"}); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}

func TestSniff(t *testing.T) {
	original := dumpPayload()

	// Extension wins even with an unrelated header.
	if got := Sniff("dump.gz", original); got != Gzip {
		t.Errorf("Sniff by extension = %v, want %v", got, Gzip)
	}

	// Renamed container files fall back to magic bytes.
	for _, algo := range []Algorithm{Gzip, Zstd, LZ4} {
		comp, err := NewCompressor(&Config{Algorithm: algo, Level: Default})
		if err != nil {
			t.Fatalf("Failed to create compressor: %v", err)
		}
		compressed, err := comp.Compress(original)
		if err != nil {
			t.Fatalf("Failed to compress: %v", err)
		}
		if got := Sniff("dump.bin", compressed); got != algo {
			t.Errorf("Sniff by magic = %v, want %v", got, algo)
		}
	}

	// A plain dump signature is nobody's magic.
	if got := Sniff("dump.bin", original); got != None {
		t.Errorf("Sniff(plain dump) = %v, want %v", got, None)
	}
	if got := Sniff("dump.bin", nil); got != None {
		t.Errorf("Sniff(empty header) = %v, want %v", got, None)
	}
}

func TestNewReader(t *testing.T) {
	original := dumpPayload()

	for _, algo := range []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2} {
		t.Run(string(algo), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: algo, Level: Default})
			if err != nil {
				t.Fatalf("Failed to create compressor: %v", err)
			}

			var compressed bytes.Buffer
			if err := comp.CompressStream(&compressed, bytes.NewReader(original)); err != nil {
				t.Fatalf("Failed to compress stream: %v", err)
			}

			r, err := NewReader(&compressed, algo)
			if err != nil {
				t.Fatalf("Failed to create reader: %v", err)
			}
			defer r.Close()

			decompressed, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("Failed to read stream: %v", err)
			}
			if !bytes.Equal(original, decompressed) {
				t.Errorf("Reader output doesn't match original")
			}
		})
	}

	if _, err := NewReader(bytes.NewReader(nil), "brotli"); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}
