package session

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/zkgames/types"
)

// Signals returns the public signals of p, which must be exactly n.
func Signals(p *types.Proof, n int) ([]*big.Int, error) {
	if len(p.PublicSignals) != n {
		return nil, fmt.Errorf("%w: %s expects %d public signals, got %d",
			ErrParameterMismatch, p.Circuit, n, len(p.PublicSignals))
	}
	return p.Signals(), nil
}

// CheckCommitment checks that got is the stored commitment of field.
func CheckCommitment(p *Participant, field string, got *big.Int) error {
	stored := p.Commitment(field)
	if stored == nil || got == nil || stored.Cmp(got) != 0 {
		return fmt.Errorf("%w: %s", ErrCommitmentMismatch, field)
	}
	return nil
}

// Ref names the stored commitment a public signal opens.
type Ref struct {
	Signal int
	Field  string
}

// CheckRefs checks the signals of p referencing commitments of owner.
// Unset commitments and missing signals are skipped, they are reported by
// the stage and arity checks.
func CheckRefs(owner *Participant, p *types.Proof, refs ...Ref) error {
	for _, r := range refs {
		if r.Signal >= len(p.PublicSignals) || p.PublicSignals[r.Signal] == nil || owner.Commitment(r.Field) == nil {
			continue
		}
		if err := CheckCommitment(owner, r.Field, p.PublicSignals[r.Signal].MathBigInt()); err != nil {
			return err
		}
	}
	return nil
}

// CheckParam checks that got equals the expected public parameter.
func CheckParam(name string, expected, got *big.Int) error {
	if expected == nil || got == nil || expected.Cmp(got) != 0 {
		return fmt.Errorf("%w: %s", ErrParameterMismatch, name)
	}
	return nil
}

// CheckInt is CheckParam for an integer parameter.
func CheckInt(name string, expected int64, got *big.Int) error {
	return CheckParam(name, big.NewInt(expected), got)
}

// Bool decodes a boolean public signal.
func Bool(name string, v *big.Int) (bool, error) {
	switch {
	case v.Sign() == 0:
		return false, nil
	case v.Cmp(big.NewInt(1)) == 0:
		return true, nil
	}
	return false, fmt.Errorf("%w: %s is not a boolean", ErrParameterMismatch, name)
}

// Int decodes an integer public signal bounded by max.
func Int(name string, v *big.Int, max int64) (int64, error) {
	if v.Sign() < 0 || !v.IsInt64() || v.Int64() > max {
		return 0, fmt.Errorf("%w: %s out of range", ErrParameterMismatch, name)
	}
	return v.Int64(), nil
}

// PhaseViolation returns an ErrPhaseViolation error.
func PhaseViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPhaseViolation, fmt.Sprintf(format, args...))
}

// InvalidAction returns an ErrInvalidAction error.
func InvalidAction(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAction, fmt.Sprintf(format, args...))
}
