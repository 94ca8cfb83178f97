package gooptcore

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks fatal configuration problems detected before any numeric work.
	ErrConfiguration = errors.New("configuration error")
	// ErrPowerBudget marks a run aborted at an amplifier power gate.
	ErrPowerBudget = errors.New("signal power too low for amplifier detection")
	// ErrCapability marks malformed input to a DSP/noise/estimation primitive.
	ErrCapability = errors.New("capability error")
	// ErrNoSignal is returned when a projection needs a signal the run never produced.
	ErrNoSignal = errors.New("signal not available")
)

// ConfigurationError describes an invalid configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// PowerBudgetError is the abort marker produced by a failed power gate.
type PowerBudgetError struct {
	Position       Position
	PowerDBm       float64
	SensitivityDBm float64
}

func (e *PowerBudgetError) Error() string {
	return fmt.Sprintf("%v: %.2f dBm at amplifier input (%s), sensitivity %.2f dBm",
		ErrPowerBudget, e.PowerDBm, e.Position, e.SensitivityDBm)
}

func (e *PowerBudgetError) Unwrap() error { return ErrPowerBudget }

// CapabilityError wraps a failure of a numerical primitive.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() []error { return []error{ErrCapability, e.Err} }

func capabilityError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CapabilityError{Op: op, Err: err}
}
