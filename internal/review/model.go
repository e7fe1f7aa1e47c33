package review

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Rating    int
	Comment   string
	CreatedAt time.Time
}
