package kinetix

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrShutdown is returned by the main loop when a cooperative stop was
// requested. It is not a failure; callers should treat it as a clean exit.
var ErrShutdown = errors.New("shutdown requested")

// ConfigError reports a snapshot or wiring problem detected at initialise
// time: a missing required component, an unknown type tag, inconsistent
// species. The simulation never starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// PhysicsError reports an impossible dynamical state: a predicted time in
// the past, NaN coordinates, a particle escaping the primary box. These
// indicate a bug in the snapshot or the streaming model and are never
// recovered from locally.
type PhysicsError struct {
	Reason string
}

func (e *PhysicsError) Error() string {
	return "physics: " + e.Reason
}

func physicsErrorf(format string, args ...any) error {
	return &PhysicsError{Reason: fmt.Sprintf(format, args...)}
}

// CapacityError reports a neighbour list too coarse for correctness: with
// fewer than three cells per axis a particle can reach a non-neighbour
// cell before its crossing is processed.
type CapacityError struct {
	Axis  int
	Cells int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity: %d cells on axis %d, need at least 3", e.Cells, e.Axis)
}
