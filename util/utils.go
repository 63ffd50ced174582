package util

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// BigToFF returns the representation of iv in the BN254 scalar field, the
// field every circuit of this module is defined over. Negative numbers are
// mapped to their field complement.
func BigToFF(iv *big.Int) *big.Int {
	mod := fr.Modulus()
	if iv.Sign() >= 0 && iv.Cmp(mod) < 0 {
		return new(big.Int).Set(iv)
	}
	return new(big.Int).Mod(iv, mod)
}

// PrettyHex returns a short hex representation of a value, useful for logs.
// It accepts *big.Int, []byte and any fmt.Stringer, falling back to %v.
func PrettyHex(v any) string {
	var s string
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return "nil"
		}
		s = t.Text(16)
	case []byte:
		s = fmt.Sprintf("%x", t)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprintf("%v", v)
	}
	if len(s) > 10 {
		return s[:4] + ".." + s[len(s)-4:]
	}
	return s
}
