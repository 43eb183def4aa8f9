package enums

import "fmt"

// MovementDirection maps to the movement_direction_enum enum in Postgres.
type MovementDirection string

const (
	MovementDirectionIn  MovementDirection = "in"
	MovementDirectionOut MovementDirection = "out"
)

var validMovementDirections = []MovementDirection{
	MovementDirectionIn,
	MovementDirectionOut,
}

// String implements fmt.Stringer.
func (d MovementDirection) String() string {
	return string(d)
}

// IsValid reports whether the value is a known MovementDirection.
func (d MovementDirection) IsValid() bool {
	for _, candidate := range validMovementDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

// Invert returns the opposite direction.
func (d MovementDirection) Invert() MovementDirection {
	if d == MovementDirectionIn {
		return MovementDirectionOut
	}
	return MovementDirectionIn
}

// ParseMovementDirection converts raw input into a MovementDirection.
func ParseMovementDirection(value string) (MovementDirection, error) {
	for _, candidate := range validMovementDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement direction %q", value)
}
