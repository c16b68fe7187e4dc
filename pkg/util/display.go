package util

import (
	"fmt"
	"os"
	"strings"
)

// HexDump prints data as a hex/ASCII dump, 16 bytes per line, with each
// line's address printed as a full 32-bit Cortex-M address (8 hex digits)
// rather than the 24-bit field a 16 MB address space would need — flash and
// RAM on these targets live at addresses like 0x08000000 and 0x20000000.
func HexDump(data []byte, startAddress uint32) {
	const bytesPerLine = 16

	for offset := 0; offset < len(data); offset += bytesPerLine {
		address := startAddress + uint32(offset)
		fmt.Printf("%08X: ", address)

		lineEnd := offset + bytesPerLine
		if lineEnd > len(data) {
			lineEnd = len(data)
		}

		for i := offset; i < lineEnd; i++ {
			fmt.Printf("%02X ", data[i])
		}
		for i := lineEnd; i < offset+bytesPerLine; i++ {
			fmt.Print("   ")
		}

		fmt.Print(" | ")
		for i := offset; i < lineEnd; i++ {
			b := data[i]
			if b >= 32 && b <= 126 {
				fmt.Printf("%c", b)
			} else {
				fmt.Print(".")
			}
		}

		fmt.Println()
	}
}

// ParseHexAddress parses a hexadecimal address string (with or without a
// 0x/$ prefix) into a full 32-bit value, the width every address, word
// count, and sector length in this domain needs — Cortex-M address space
// and flash sizes (LPC17's 128 KB, STM32F4's up to 1 MB) both overrun a
// 16-bit field.
func ParseHexAddress(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	s = strings.TrimPrefix(s, "$")

	var addr uint32
	if _, err := fmt.Sscanf(s, "%x", &addr); err != nil {
		return 0, fmt.Errorf("invalid hex address '%s': %w", s, err)
	}
	return addr, nil
}

// ReadFile reads an entire file and returns its contents.
func ReadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return data, nil
}
