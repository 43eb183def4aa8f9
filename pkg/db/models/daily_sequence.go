package models

// DailySequence is a per-day counter row used to allocate gapless numbers
// for order numbers and part codes. Allocation increments the row inside
// the caller's transaction so two allocations never share a value.
type DailySequence struct {
	Scope string `gorm:"column:scope;primaryKey"`
	Day   string `gorm:"column:day;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}
