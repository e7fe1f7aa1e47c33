package appointment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Terminal states no longer occupy a slot.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// transitions is the full legality table. Completion is absent on purpose:
// an appointment only completes through AttachPrescription.
var transitions = map[Status]map[Status]bool{
	StatusScheduled: {
		StatusConfirmed:   true,
		StatusCancelled:   true,
		StatusRescheduled: true,
	},
	StatusConfirmed: {
		StatusCancelled:   true,
		StatusRescheduled: true,
	},
}

func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Medicine struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

type Prescription struct {
	Medicines    []Medicine `json:"medicines"`
	Instructions string     `json:"instructions"`
	FollowUpDate *time.Time `json:"follow_up_date,omitempty"`
}

type Appointment struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	HospitalID    *uuid.UUID
	Date          time.Time // calendar date, midnight UTC
	SlotStart     string    // wall clock, "15:04"
	SlotEnd       string
	Status        Status
	Reason        string
	Symptoms      []string
	Notes         string
	Prescription  *Prescription
	PaymentStatus PaymentStatus
	Amount        decimal.Decimal // doctor's fee snapshotted at booking time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
