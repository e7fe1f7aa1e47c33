package review

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDuplicateReview = errors.New("patient already reviewed this doctor")
	ErrDoctorNotFound  = errors.New("doctor not found")
)

// Repository persists reviews and keeps the doctor's derived rating
// consistent with the underlying collection.
type Repository interface {
	// Add inserts the review and recomputes the doctor's rating from the full
	// collection in the same transaction. A second review by the same patient
	// is ErrDuplicateReview.
	Add(ctx context.Context, rev *Review) error

	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Review, error)
}
