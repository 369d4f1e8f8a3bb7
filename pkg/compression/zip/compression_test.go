package zip

import (
	"bytes"
	"testing"
)

func TestCompression(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		file string
	}{
		{name: "small blob", data: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, file: "sav"},
		{name: "sram sized", data: bytes.Repeat([]byte{0xff, 0x00}, 4096), file: "battery"},
		{name: "empty", data: []byte{}, file: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := Compress(tt.data, tt.file)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if !Is(packed) {
				t.Errorf("Is() = false for a fresh archive")
			}
			got, name, err := Read(packed)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if name != tt.file {
				t.Errorf("Read() name = %v, want %v", name, tt.file)
			}
			if !bytes.Equal(got, tt.data) {
				t.Errorf("Read() data mismatch, got %v bytes, want %v", len(got), len(tt.data))
			}
		})
	}
}

func TestReadGarbage(t *testing.T) {
	if Is([]byte("plain")) {
		t.Errorf("Is() = true for plain bytes")
	}
	if _, _, err := Read([]byte("plain")); err == nil {
		t.Errorf("Read() should fail on plain bytes")
	}
}
