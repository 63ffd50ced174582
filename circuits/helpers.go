package circuits

import (
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/vocdoni/zkgames/log"
)

// Unsatisfiable wraps ErrWitnessUnsatisfiable with the reason provided.
func Unsatisfiable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrWitnessUnsatisfiable, fmt.Sprintf(format, args...))
}

// BoolToBigInt returns 1 when b is true or 0 otherwise
func BoolToBigInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

// InRange returns true if min <= x <= max.
func InRange(x, min, max int64) bool {
	return x >= min && x <= max
}

// SquaredDistanceInt is the native counterpart of SquaredDistance.
func SquaredDistanceInt(a, b [3]int64) int64 {
	var sum int64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// StoreConstraintSystem stores the constraint system in a file.
func StoreConstraintSystem(cs constraint.ConstraintSystem, filepath string) error {
	fd, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer fd.Close()
	if _, err := cs.WriteTo(fd); err != nil {
		return err
	}
	log.Debugw("constraint system written", "path", filepath)
	return nil
}

// StoreProvingKey stores the proving key in a file.
func StoreProvingKey(pkey groth16.ProvingKey, filepath string) error {
	fd, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer fd.Close()
	if _, err := pkey.WriteRawTo(fd); err != nil {
		return err
	}
	log.Debugw("proving key written", "path", filepath)
	return nil
}

// StoreVerificationKey stores the verification key in a file.
func StoreVerificationKey(vkey groth16.VerifyingKey, filepath string) error {
	fd, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer fd.Close()
	if _, err := vkey.WriteRawTo(fd); err != nil {
		return err
	}
	log.Debugw("verification key written", "path", filepath)
	return nil
}
