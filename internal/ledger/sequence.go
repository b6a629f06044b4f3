package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// paymentSequenceName is the single sequence backing payment numbers.
const paymentSequenceName = "payment_number"

// SequenceAllocator hands out monotonically increasing sequence values.
// Next must be called inside the transaction that creates the entry so a
// rolled-back create does not burn a visible gap mid-flight.
type SequenceAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, name string) (int64, error)
}

type sequenceAllocator struct{}

// NewSequenceAllocator returns the database-backed allocator.
func NewSequenceAllocator() SequenceAllocator {
	return sequenceAllocator{}
}

// Next advances the named sequence with a single upsert so concurrent
// callers serialize on the row lock and can never observe the same value.
func (sequenceAllocator) Next(ctx context.Context, tx *gorm.DB, name string) (int64, error) {
	var value int64
	err := tx.WithContext(ctx).Raw(
		`INSERT INTO payment_sequences (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = payment_sequences.value + 1
		 RETURNING value`,
		name,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

// FormatPaymentNumber renders a sequence value as the human-facing label.
func FormatPaymentNumber(value int64) string {
	return fmt.Sprintf("PAY-%05d", value)
}
