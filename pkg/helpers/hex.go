package helpers

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexToBytes decodes a hex string (with or without a 0x prefix) to bytes.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// BytesToHex encodes bytes as a lowercase hex string without a 0x prefix,
// matching the key-expression grammar's backtick-quoted hex literals.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// PadLeft pads a byte slice with zeros on the left to reach the given length.
func PadLeft(b []byte, length int) []byte {
	if len(b) >= length {
		return b
	}
	result := make([]byte, length)
	copy(result[length-len(b):], b)
	return result
}

// ReverseBytes returns a copy of b with byte order reversed (used to flip
// between little-endian wire order and big-endian display order for hashes).
func ReverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
