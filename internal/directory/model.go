package directory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID              uuid.UUID
	UserName        string
	Email           string
	Specialization  string
	Qualifications  []string
	ExperienceYears int
	ConsultationFee decimal.Decimal
	HospitalID      *uuid.UUID
	Rating          decimal.Decimal
	ReviewCount     int
	Approved        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Hospital struct {
	ID         uuid.UUID
	Name       string
	City       string
	State      string
	Phone      string
	Email      *string
	Facilities []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DoctorFilter narrows ListDoctors. Zero values mean no filtering.
type DoctorFilter struct {
	Specialization string
	HospitalID     *uuid.UUID
}
