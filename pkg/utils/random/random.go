package random

import (
	"crypto/rand"
	"math/big"
)

const digits = "0123456789"

// GuestName returns "Guest" followed by four digits, first digit nonzero,
// matching the default profile naming scheme.
func GuestName() string {
	return "Guest" + pickFromSet(digits[1:], 1) + pickFromSet(digits, 3)
}

func Numeric(length int) string {
	return pickFromSet(digits, length)
}

func pickFromSet(set string, length int) string {
	if length <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(set)))
	runes := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			runes[i] = set[0]
			continue
		}
		runes[i] = set[n.Int64()]
	}
	return string(runes)
}
