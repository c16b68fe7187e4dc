package util

import (
	"testing"
)

func TestParseHexAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected uint32
		wantErr  bool
	}{
		{"Flash base address, no prefix", "8000000", 0x08000000, false},
		{"RAM base address with 0x prefix", "0x20000000", 0x20000000, false},
		{"With $ prefix", "$1234", 0x1234, false},
		{"Uppercase", "ABCD", 0xABCD, false},
		{"Lowercase", "abcd", 0xABCD, false},
		{"Zero", "0", 0, false},
		{"Max 32-bit", "FFFFFFFF", 0xFFFFFFFF, false},
		{"STM32F4 1 MB flash top", "100000", 0x00100000, false},
		{"Invalid characters", "GHIJ", 0, true},
		{"Empty string", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseHexAddress(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseHexAddress(%s) expected error, got nil", tt.input)
				}
			} else {
				if err != nil {
					t.Errorf("ParseHexAddress(%s) unexpected error: %v", tt.input, err)
				}
				if result != tt.expected {
					t.Errorf("ParseHexAddress(%s) = 0x%X, want 0x%X", tt.input, result, tt.expected)
				}
			}
		})
	}
}

func TestHexDumpDoesNotPanicAtFullWidthAddress(t *testing.T) {
	// Smoke test: ensure HexDump doesn't panic on a buffer spanning more
	// than one 16-byte line, including a trailing partial line, at an
	// address that needs the full 8-digit Cortex-M field (unlike a 24-bit
	// address space, 0x20000000 doesn't fit in 6 hex digits).
	data := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
		0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x20, 0x57, 0x6F, // "Hello Wo"
		0x72, 0x6C, 0x64, 0x21, 0x00, 0xFF} // "rld!"

	HexDump(data, 0x20000000)
}
