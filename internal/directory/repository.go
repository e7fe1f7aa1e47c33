package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrHospitalNotFound = errors.New("hospital not found")
)

// Repository contains all DB interactions needed for directory lookups.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	// ListDoctors returns approved doctors only, matching the filter.
	ListDoctors(ctx context.Context, filter DoctorFilter, limit, offset int) ([]Doctor, error)

	GetHospitalByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	ListHospitals(ctx context.Context, limit, offset int) ([]Hospital, error)
}
