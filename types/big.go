package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a string representation
// of the big number, and CBOR to the standard bignum encoding.
type BigInt big.Int

// NewInt returns a BigInt set to x.
func NewInt(x int64) *BigInt {
	return (*BigInt)(big.NewInt(x))
}

// FromBigInt converts a *big.Int into a *BigInt. It returns nil for nil.
func FromBigInt(x *big.Int) *BigInt {
	if x == nil {
		return nil
	}
	return (*BigInt)(new(big.Int).Set(x))
}

// MarshalText returns the decimal string representation of the big number.
func (i BigInt) MarshalText() ([]byte, error) {
	return (*big.Int)(&i).MarshalText()
}

// UnmarshalText parses a decimal or 0x prefixed hexadecimal string.
func (i *BigInt) UnmarshalText(data []byte) error {
	s := strings.Trim(string(data), "\"")
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if _, ok := (*big.Int)(i).SetString(s, base); !ok {
		return fmt.Errorf("invalid big number: %q", data)
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface as a quoted string.
func (i BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + i.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. It accepts quoted
// strings and bare JSON numbers.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	return i.UnmarshalText(data)
}

// MarshalCBOR encodes the number as a CBOR bignum.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(i.MathBigInt())
}

// UnmarshalCBOR decodes a CBOR bignum.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	n := new(big.Int)
	if err := cbor.Unmarshal(data, n); err != nil {
		return err
	}
	i.SetBigInt(n)
	return nil
}

// String returns the decimal representation of the number.
func (i *BigInt) String() string {
	return (*big.Int)(i).String()
}

// MathBigInt converts BigInt to a *big.Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetBigInt sets the value of i to x.
func (i *BigInt) SetBigInt(x *big.Int) *BigInt {
	(*big.Int)(i).Set(x)
	return i
}

// Bytes returns the big-endian absolute value of the number.
func (i *BigInt) Bytes() []byte {
	return (*big.Int)(i).Bytes()
}

// SetBytes interprets data as a big-endian unsigned number.
func (i *BigInt) SetBytes(data []byte) *BigInt {
	(*big.Int)(i).SetBytes(data)
	return i
}

// Equal reports whether both numbers hold the same value. A nil BigInt is
// only equal to another nil.
func (i *BigInt) Equal(j *BigInt) bool {
	if i == nil || j == nil {
		return i == j
	}
	return (*big.Int)(i).Cmp((*big.Int)(j)) == 0
}

// EqualBig compares i with a *big.Int.
func (i *BigInt) EqualBig(x *big.Int) bool {
	if i == nil || x == nil {
		return false
	}
	return (*big.Int)(i).Cmp(x) == 0
}

// BigIntSlice converts a slice of *BigInt into a slice of *big.Int.
func BigIntSlice(in []*BigInt) []*big.Int {
	out := make([]*big.Int, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = new(big.Int)
			continue
		}
		out[i] = new(big.Int).Set(v.MathBigInt())
	}
	return out
}

// SliceFromBigInts converts a slice of *big.Int into a slice of *BigInt.
func SliceFromBigInts(in []*big.Int) []*BigInt {
	out := make([]*BigInt, len(in))
	for i, v := range in {
		out[i] = FromBigInt(v)
	}
	return out
}
