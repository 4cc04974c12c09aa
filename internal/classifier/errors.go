package classifier

import "fmt"

// FitError indicates training could not proceed with the given data.
// A FitError never leaves a partially fitted model behind.
type FitError struct {
	Reason string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("classifier fit failed: %s", e.Reason)
}

// MinClasses is the fewest distinct roles a forest can be fit on.
const MinClasses = 2

const (
	reasonNoSamples     = "no training samples"
	reasonNoFeatures    = "feature matrix has zero columns (empty vocabulary)"
	reasonTooFewClasses = "at least 2 distinct roles are required"
)
