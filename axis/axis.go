// Package axis owns the position and kinematic settings of the printer axes.
package axis

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned for an identifier outside x, y and z
	ErrNotFound = errors.New("axis not found")
	// ErrValidation is returned when settings values are malformed or out of range
	ErrValidation = errors.New("invalid axis settings")
	// ErrOutOfBounds is returned when a move or position would leave the axis travel
	ErrOutOfBounds = errors.New("position out of bounds")
	// ErrNotStored is returned by a Store that has no entry for an axis
	ErrNotStored = errors.New("no stored settings")
)

// ID identifies one axis
type ID string

const (
	X ID = "x"
	Y ID = "y"
	Z ID = "z"
)

// IDs returns every axis identifier in a stable order
func IDs() []ID {
	return []ID{X, Y, Z}
}

// ParseID maps a case-insensitive name to an axis identifier
func ParseID(name string) (ID, error) {
	switch id := ID(strings.ToLower(strings.TrimSpace(name))); id {
	case X, Y, Z:
		return id, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
}

// Axis is one linear degree of freedom.
type Axis struct {
	id ID

	// mu guards position and settings
	mu       sync.RWMutex
	position float64
	settings Settings
	travel   float64

	// saveMu serializes settings writers across persistence so readers never wait on I/O
	saveMu sync.Mutex
}

func newAxis(id ID, settings Settings, travel float64) *Axis {
	return &Axis{
		id:       id,
		settings: settings,
		travel:   travel,
	}
}

// ID returns the axis identifier
func (a *Axis) ID() ID {
	return a.id
}

// Position returns the last reached position in millimeters
func (a *Axis) Position() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.position
}

// Settings returns a copy of the current settings
func (a *Axis) Settings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

func (a *Axis) snapshot() (float64, Settings) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.position, a.settings
}

func (a *Axis) setPosition(v float64) {
	a.mu.Lock()
	a.position = v
	a.mu.Unlock()
}

func (a *Axis) setSettings(s Settings) {
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
}

// checkBounds reports whether v lies inside the configured travel.
// A travel of zero leaves the axis unbounded.
func (a *Axis) checkBounds(v float64) error {
	if !finite(v) {
		return fmt.Errorf("%w: axis %s target %v is not finite", ErrOutOfBounds, a.id, v)
	}
	if a.travel <= 0 {
		return nil
	}
	if v < 0 || v > a.travel {
		return fmt.Errorf("%w: axis %s target %.3f outside [0, %.3f]", ErrOutOfBounds, a.id, v, a.travel)
	}
	return nil
}
