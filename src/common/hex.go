package common

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EncodeToString returns the uppercase hex representation of b with the 0X
// prefix. Public keys and event hashes are displayed this way.
func EncodeToString(b []byte) string {
	return fmt.Sprintf("0X%X", b)
}

// DecodeFromString is the inverse of EncodeToString. The prefix is optional
// and case-insensitive.
func DecodeFromString(s string) ([]byte, error) {
	if strings.HasPrefix(s, "0X") || strings.HasPrefix(s, "0x") {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
