package models

// PaymentSequence backs the atomic payment number allocator. A single row
// per sequence name; Value is advanced with UPDATE ... RETURNING so
// concurrent creates never collide or skip.
type PaymentSequence struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}
