package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddReview appends a review and folds it into the doctor's rating. One
// review per (doctor, patient); a duplicate leaves the rating untouched.
func (s *Service) AddReview(ctx context.Context, doctorID, patientID uuid.UUID, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}

	return s.repo.Add(ctx, &Review{
		DoctorID:  doctorID,
		PatientID: patientID,
		Rating:    rating,
		Comment:   comment,
	})
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Review, error) {
	reviews, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}
