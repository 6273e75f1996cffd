package decoder

import (
	"fmt"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
)

// RejectReason explains why a burst did not produce a measurement.
type RejectReason uint8

const (
	// NotRejected marks an accepted burst.
	NotRejected RejectReason = iota
	NoConsensus
	UndefinedStation
	UndefinedBattery
	OutOfPhysicalRange
	OutOfDriftTolerance
)

func (r RejectReason) String() string {
	switch r {
	case NotRejected:
		return "NotRejected"
	case NoConsensus:
		return "NoConsensus"
	case UndefinedStation:
		return "UndefinedStation"
	case UndefinedBattery:
		return "UndefinedBattery"
	case OutOfPhysicalRange:
		return "OutOfPhysicalRange"
	case OutOfDriftTolerance:
		return "OutOfDriftTolerance"
	default:
		return fmt.Sprintf("RejectReason(%d)", uint8(r))
	}
}

// DriftPolicy selects how the drift gate's reference measurement evolves.
type DriftPolicy string

const (
	// DriftFixed keeps the first measurement that reached the drift gate as
	// the reference for the lifetime of the process.
	DriftFixed DriftPolicy = "fixed"
	// DriftRolling replaces the reference with every measurement that
	// reached the drift gate, whether or not it passed.
	DriftRolling DriftPolicy = "rolling"
)

// ParseDriftPolicy validates a policy name from configuration.
func ParseDriftPolicy(s string) (DriftPolicy, error) {
	switch DriftPolicy(s) {
	case DriftFixed, DriftRolling:
		return DriftPolicy(s), nil
	}
	return "", fmt.Errorf("unknown drift policy %q (use %q or %q)", s, DriftFixed, DriftRolling)
}

// Limits are the plausibility bounds. All intervals are open.
type Limits struct {
	MinTemperature float64
	MaxTemperature float64
	DriftTolerance float64
	DriftPolicy    DriftPolicy
}

// DefaultLimits returns the bounds used by the sensor's operating range.
func DefaultLimits() Limits {
	return Limits{
		MinTemperature: -20,
		MaxTemperature: 50,
		DriftTolerance: 10,
		DriftPolicy:    DriftRolling,
	}
}

// Validator rejects decoded frames that cannot be a real reading. It keeps
// the drift reference, so one Validator belongs to one pipeline.
type Validator struct {
	limits    Limits
	reference *Fields
}

func NewValidator(l Limits) *Validator {
	return &Validator{limits: l}
}

// Validate runs the structural, physical-range and drift gates in that
// order and returns the first failure, or NotRejected.
func (v *Validator) Validate(f Fields) RejectReason {
	if f.Station == types.StationUndefined {
		return UndefinedStation
	}
	if f.Battery == types.BatteryUndefined {
		return UndefinedBattery
	}
	if !(f.Temperature > v.limits.MinTemperature && f.Temperature < v.limits.MaxTemperature) {
		return OutOfPhysicalRange
	}
	return v.checkDrift(f)
}

func (v *Validator) checkDrift(f Fields) RejectReason {
	if v.reference == nil {
		ref := f
		v.reference = &ref
		return NotRejected
	}

	ref := v.reference.Temperature
	tol := v.limits.DriftTolerance
	within := f.Temperature > ref-tol && f.Temperature < ref+tol

	if v.limits.DriftPolicy == DriftRolling {
		next := f
		v.reference = &next
	}

	if !within {
		return OutOfDriftTolerance
	}
	return NotRejected
}

// Reference returns the current drift reference, if one has been set.
func (v *Validator) Reference() (Fields, bool) {
	if v.reference == nil {
		return Fields{}, false
	}
	return *v.reference, true
}
