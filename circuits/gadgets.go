package circuits

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// Validity accumulates the partial checks of a circuit. Every check is a
// bit and the accumulated validity is their product, so a single failing
// check zeroes it. Assert must be called once every check is added.
type Validity struct {
	api   frontend.API
	valid frontend.Variable
}

// NewValidity returns a Validity accumulator initialized to 1.
func NewValidity(api frontend.API) *Validity {
	return &Validity{api: api, valid: 1}
}

// And adds a check bit to the accumulator.
func (v *Validity) And(bit frontend.Variable) {
	v.valid = v.api.Mul(v.valid, bit)
}

// AndEqual adds the check a == b to the accumulator.
func (v *Validity) AndEqual(a, b frontend.Variable) {
	v.And(IsEqual(v.api, a, b))
}

// Value returns the accumulated validity bit.
func (v *Validity) Value() frontend.Variable {
	return v.valid
}

// Assert constrains the accumulated validity to be 1.
func (v *Validity) Assert() {
	v.api.AssertIsEqual(v.valid, 1)
}

// IsEqual returns 1 if a == b, 0 otherwise.
func IsEqual(api frontend.API, a, b frontend.Variable) frontend.Variable {
	return api.IsZero(api.Sub(a, b))
}

// LessThan returns 1 if a < b, 0 otherwise. The difference of the operands
// must fit in nbBits bits, otherwise the circuit is not satisfiable.
func LessThan(api frontend.API, a, b frontend.Variable, nbBits int) frontend.Variable {
	bound := new(big.Int).Lsh(big.NewInt(1), uint(nbBits))
	bits := api.ToBinary(api.Sub(api.Add(a, bound), b), nbBits+1)
	return api.Sub(1, bits[nbBits])
}

// LessOrEqual returns 1 if a <= b, 0 otherwise.
func LessOrEqual(api frontend.API, a, b frontend.Variable, nbBits int) frontend.Variable {
	return api.Sub(1, LessThan(api, b, a, nbBits))
}

// Comparator returns the bits lt, eq and gt of the comparison of a and b.
// Exactly one of them is 1.
func Comparator(api frontend.API, a, b frontend.Variable, nbBits int) (lt, eq, gt frontend.Variable) {
	lt = LessThan(api, a, b, nbBits)
	eq = IsEqual(api, a, b)
	gt = api.Sub(1, api.Add(lt, eq))
	return lt, eq, gt
}

// RangeCheck returns 1 if min <= x <= max, 0 otherwise.
func RangeCheck(api frontend.API, x, min, max frontend.Variable, nbBits int) frontend.Variable {
	return api.Mul(LessOrEqual(api, min, x, nbBits), LessOrEqual(api, x, max, nbBits))
}

// SelectByIndex returns values[index] using a one-hot selector, and a bit
// that is 1 if index points to an element of values.
func SelectByIndex(api frontend.API, values []frontend.Variable, index frontend.Variable) (value, found frontend.Variable) {
	value, found = 0, 0
	for i := range values {
		hit := IsEqual(api, index, i)
		value = api.Add(value, api.Mul(hit, values[i]))
		found = api.Add(found, hit)
	}
	return value, found
}

// ClampedSub returns max(0, a - b).
func ClampedSub(api frontend.API, a, b frontend.Variable, nbBits int) frontend.Variable {
	isNegative := LessThan(api, a, b, nbBits)
	return api.Mul(api.Sub(1, isNegative), api.Sub(a, b))
}

// Min returns the smallest of a and b.
func Min(api frontend.API, a, b frontend.Variable, nbBits int) frontend.Variable {
	return api.Select(LessThan(api, a, b, nbBits), a, b)
}

// SquaredDistance returns the squared euclidean distance of two points.
func SquaredDistance(api frontend.API, a, b []frontend.Variable) frontend.Variable {
	sum := frontend.Variable(0)
	for i := range a {
		d := api.Sub(a[i], b[i])
		sum = api.Add(sum, api.Mul(d, d))
	}
	return sum
}

// Hash returns the MiMC hash of the values provided, matching
// commitment.Hash.
func Hash(api frontend.API, values ...frontend.Variable) (frontend.Variable, error) {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}
	h.Write(values...)
	return h.Sum(), nil
}

// Commit returns the commitment of the values with the salt provided,
// matching commitment.Commit.
func Commit(api frontend.API, salt frontend.Variable, values ...frontend.Variable) (frontend.Variable, error) {
	return Hash(api, append(append([]frontend.Variable{}, values...), salt)...)
}
