package models

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// HasBadByte reports whether any of the width low bytes of addr is in bad.
func HasBadByte(addr uint64, width int, bad []byte) bool {
	if len(bad) == 0 {
		return false
	}
	for i := 0; i < width && i < 8; i++ {
		b := byte(addr >> (uint(i) * 8))
		for _, c := range bad {
			if b == c {
				return true
			}
		}
	}
	return false
}

var badByteCleaner = strings.NewReplacer(
	`\x`, "", "0x", "", "0X", "",
	",", "", " ", "", "\t", "", "\n", "",
)

// ParseBadBytes decodes a hex byte list such as "0a0d", `\x0a\x0d` or
// "0x0a,0x0d".
func ParseBadBytes(s string) ([]byte, error) {
	clean := badByteCleaner.Replace(s)
	if len(clean)%2 != 0 {
		return nil, errors.Wrapf(ErrBadConfig, "%s: odd number of hex digits in bad bytes", s)
	}
	out, err := hex.DecodeString(clean)
	if err != nil {
		return nil, errors.Wrapf(ErrBadConfig, "%s: bad bytes: %v", s, err)
	}
	return out, nil
}
