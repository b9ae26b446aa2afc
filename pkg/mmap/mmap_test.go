package mmap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

func TestOpenAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.bin")
	content := append([]byte("PGCOPY\n\xff\r\n\x00"), bytes.Repeat([]byte{0xAB}, 9000)...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if f.Size() != int64(len(content)) {
		t.Errorf("Size = %d, want %d", f.Size(), len(content))
	}
	if !bytes.Equal(f.Bytes(), content) {
		t.Error("mapped bytes don't match file contents")
	}

	if err := f.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	if len(f.Bytes()) != 0 {
		t.Errorf("expected zero bytes, got %d", len(f.Bytes()))
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.bin"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.IsType(err, errors.ErrorTypeIO) {
		t.Errorf("error type = %v, want %v", errors.Type(err), errors.ErrorTypeIO)
	}
}
