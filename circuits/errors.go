package circuits

import "errors"

// ErrWitnessUnsatisfiable is returned when the inputs of a transition do not
// satisfy the constraints of its circuit, so no proof can be built for it.
var ErrWitnessUnsatisfiable = errors.New("witness unsatisfiable")
