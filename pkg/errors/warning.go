package errors

import (
	"fmt"

	zlog "github.com/rs/zerolog/log"
)

// ConvergenceWarning signals that an iterative solver stopped before meeting its
// tolerance. It is reported through Warn rather than returned: the fitted
// parameters are still usable.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

// NewConvergenceWarning creates a ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("%s: %s did not converge after %d iterations: %s",
		prefix, w.Algorithm, w.Iterations, w.Message)
}

// Warn logs a warning through the global zerolog logger.
func Warn(w error) {
	if w == nil {
		return
	}
	zlog.Warn().Err(w).Msg("warning")
}
