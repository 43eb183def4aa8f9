package enums

import "fmt"

// MovementCategory records the business reason for a stock movement.
type MovementCategory string

const (
	MovementCategoryPurchase    MovementCategory = "purchase"
	MovementCategoryTransferIn  MovementCategory = "transfer_in"
	MovementCategoryTransferOut MovementCategory = "transfer_out"
	MovementCategoryUsage       MovementCategory = "usage"
	MovementCategoryAdjustment  MovementCategory = "adjustment"
)

var validMovementCategories = []MovementCategory{
	MovementCategoryPurchase,
	MovementCategoryTransferIn,
	MovementCategoryTransferOut,
	MovementCategoryUsage,
	MovementCategoryAdjustment,
}

var inboundCategories = []MovementCategory{
	MovementCategoryPurchase,
	MovementCategoryTransferIn,
	MovementCategoryAdjustment,
}

var outboundCategories = []MovementCategory{
	MovementCategoryUsage,
	MovementCategoryTransferOut,
	MovementCategoryAdjustment,
}

// String implements fmt.Stringer.
func (c MovementCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known MovementCategory.
func (c MovementCategory) IsValid() bool {
	for _, candidate := range validMovementCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// AllowsDirection reports whether the category may be recorded with the given direction.
func (c MovementCategory) AllowsDirection(direction MovementDirection) bool {
	candidates := outboundCategories
	if direction == MovementDirectionIn {
		candidates = inboundCategories
	}
	for _, candidate := range candidates {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseMovementCategory converts raw input into a MovementCategory.
func ParseMovementCategory(value string) (MovementCategory, error) {
	for _, candidate := range validMovementCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement category %q", value)
}
