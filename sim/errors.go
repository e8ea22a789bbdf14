// Error taxonomy for the simulation engine. Configuration problems surface
// before tick 0; everything else is attributed to the tick that produced it
// and carries the context needed to reproduce the failure.

package sim

import (
	"errors"
	"fmt"
)

// Severity classifies an invariant violation. Fatal violations halt the run;
// warnings are logged and, for bound violations, clamped away.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityFatal   Severity = "fatal"
)

// ConfigurationError reports an invalid scenario or engine setting. It is
// always raised before the tick loop starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ScenarioNotFoundError is returned when a scenario id matches neither a
// built-in scenario nor a file in the scenario directory.
type ScenarioNotFoundError struct {
	ID string
}

func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario %q not found", e.ID)
}

// PolicyConflictError reports two absolute sets of the same decision slot
// with different values in one tick. Conflicts halt the tick before any
// subsystem runs.
type PolicyConflictError struct {
	Slot      string
	FirstID   string
	SecondID  string
	TickIndex int64
}

func (e *PolicyConflictError) Error() string {
	return fmt.Sprintf("conflicting decisions on slot %q at tick %d: %s vs %s",
		e.Slot, e.TickIndex, e.FirstID, e.SecondID)
}

// SubsystemError wraps a subsystem update failure with its origin.
type SubsystemError struct {
	Subsystem string
	TickIndex int64
	Err       error
}

func (e *SubsystemError) Error() string {
	return fmt.Sprintf("subsystem %s failed at tick %d: %v", e.Subsystem, e.TickIndex, e.Err)
}

func (e *SubsystemError) Unwrap() error { return e.Err }

// InvariantViolation is one failed post-commit check. Expected holds the
// reconciled or clamped value the check wanted to see.
type InvariantViolation struct {
	Name      string
	Severity  Severity
	Observed  float64
	Expected  float64
	TickIndex int64
}

func (v InvariantViolation) String() string {
	return fmt.Sprintf("%s at tick %d: observed %g, expected %g (%s)",
		v.Name, v.TickIndex, v.Observed, v.Expected, v.Severity)
}

// InvariantError is the fatal form of a violation, returned when a run halts.
type InvariantError struct {
	Violation InvariantViolation
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Violation.String()
}

// IsFatalBeforeLoop reports whether err is a failure class that can only
// occur during setup, before the first tick.
func IsFatalBeforeLoop(err error) bool {
	var cfg *ConfigurationError
	var missing *ScenarioNotFoundError
	return errors.As(err, &cfg) || errors.As(err, &missing)
}
