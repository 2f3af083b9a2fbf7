package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CharsetAlphanumeric is the charset for reference strings.
const CharsetAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// String generates a random string from the given charset.
func String(length int, charset string) (string, error) {
	if length <= 0 {
		return "", nil
	}
	if charset == "" {
		charset = CharsetAlphanumeric
	}

	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("generate random index: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// Ref generates a prefixed transaction reference, e.g. "ch_ab12Cd34Ef56".
// Useful for gateway authorization tokens and store references.
func Ref(prefix string) string {
	s, _ := String(16, CharsetAlphanumeric)
	return prefix + "_" + s
}

