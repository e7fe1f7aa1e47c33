package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("time slot not available")
)

// ListFilter narrows List. Zero values mean no filtering.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}

// UpdateFields is the free-form patch applied by Update. Nil fields are left
// untouched.
type UpdateFields struct {
	Status    *Status
	Date      *time.Time
	SlotStart *string
	SlotEnd   *string
	Notes     *string
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindActive reports the scheduled/confirmed appointment occupying the
	// slot, or ErrAppointmentNotFound when the slot is free.
	FindActive(ctx context.Context, doctorID uuid.UUID, date time.Time, slotStart string) (*Appointment, error)

	// Create inserts a new appointment. A partial-unique-index violation on
	// the active slot is reported as ErrSlotTaken.
	Create(ctx context.Context, appt *Appointment) (*Appointment, error)

	// UpdateStatus is a compare-and-swap on status. No row matching (id, from)
	// yields ErrAppointmentNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// ApplyPatch writes the given fields, guarded on the current status.
	ApplyPatch(ctx context.Context, id uuid.UUID, from Status, patch UpdateFields) (*Appointment, error)

	// SetPrescription stores the prescription and completes the appointment in
	// one statement, guarded on the current status.
	SetPrescription(ctx context.Context, id uuid.UUID, from Status, p *Prescription) (*Appointment, error)

	// MarkPaid flips the appointment's payment status; used by billing when a
	// linked bill settles.
	MarkPaid(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Appointment, error)
}
