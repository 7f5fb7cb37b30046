package axis

import (
	"fmt"
	"math"
)

// Settings holds the kinematic reference values of one axis
type Settings struct {
	ReferenceSpeed      float64 `json:"reference_speed"`
	ReferenceAccelDecel float64 `json:"reference_accel_decel"`
	ReferenceJerk       float64 `json:"reference_jerk"`
}

// Update is a partial settings change. A nil field is left untouched.
type Update struct {
	ReferenceSpeed      *float64 `json:"reference_speed"`
	ReferenceAccelDecel *float64 `json:"reference_accel_decel"`
	ReferenceJerk       *float64 `json:"reference_jerk"`
}

// Empty reports whether the update names no field
func (u Update) Empty() bool {
	return u.ReferenceSpeed == nil && u.ReferenceAccelDecel == nil && u.ReferenceJerk == nil
}

// Apply merges the update into current and validates the result.
// On error the returned settings are the unchanged current value.
func (u Update) Apply(current Settings) (Settings, error) {
	merged := current
	if u.ReferenceSpeed != nil {
		merged.ReferenceSpeed = *u.ReferenceSpeed
	}
	if u.ReferenceAccelDecel != nil {
		merged.ReferenceAccelDecel = *u.ReferenceAccelDecel
	}
	if u.ReferenceJerk != nil {
		merged.ReferenceJerk = *u.ReferenceJerk
	}

	if err := merged.Validate(); err != nil {
		return current, err
	}
	return merged, nil
}

// Validate checks that every field is finite and in range
func (s Settings) Validate() error {
	if !finite(s.ReferenceSpeed) || s.ReferenceSpeed <= 0 {
		return fmt.Errorf("%w: reference_speed must be a positive number, got %v", ErrValidation, s.ReferenceSpeed)
	}
	if !finite(s.ReferenceAccelDecel) || s.ReferenceAccelDecel <= 0 {
		return fmt.Errorf("%w: reference_accel_decel must be a positive number, got %v", ErrValidation, s.ReferenceAccelDecel)
	}
	if !finite(s.ReferenceJerk) || s.ReferenceJerk < 0 {
		return fmt.Errorf("%w: reference_jerk must be a non-negative number, got %v", ErrValidation, s.ReferenceJerk)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
