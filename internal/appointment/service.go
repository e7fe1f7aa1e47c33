package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/healthcare-booking/internal/directory"
	"github.com/hackgods/healthcare-booking/internal/notify"
	redisclient "github.com/hackgods/healthcare-booking/internal/redis"
)

var (
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidSlot       = errors.New("invalid time slot")
	ErrInvalidStatus     = errors.New("unknown appointment status")
	ErrEmptyPrescription = errors.New("prescription needs at least one medicine")
)

// DoctorDirectory and PatientDirectory are the slices of the directory
// repository the booking path needs.
type DoctorDirectory interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
}

type PatientDirectory interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}

// Notifier delivers the booking confirmation. Delivery failures never fail
// the booking.
type Notifier interface {
	BookingConfirmed(ctx context.Context, n notify.BookingConfirmation) error
}

type BookingRequest struct {
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	HospitalID *uuid.UUID
	Date       time.Time
	SlotStart  string
	SlotEnd    string
	Reason     string
	Symptoms   []string
}

type Service struct {
	repo     Repository
	doctors  DoctorDirectory
	patients PatientDirectory
	locker   redisclient.Locker
	notifier Notifier
	log      zerolog.Logger
}

func NewService(repo Repository, doctors DoctorDirectory, patients PatientDirectory, locker redisclient.Locker, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		doctors:  doctors,
		patients: patients,
		locker:   locker,
		notifier: notifier,
		log:      log,
	}
}

// Book reserves a slot for a patient. The check-then-create pair runs under a
// distributed lock keyed by (doctor, date, slot start) so that concurrent
// requests for the same slot cannot both create an appointment; the partial
// unique index on active appointments backstops the lock.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := validateSlot(req.SlotStart, req.SlotEnd); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidSlot)
	}

	patient, err := s.patients.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, directory.ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.doctors.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, req.DoctorID, req.Date, req.SlotStart, func(lockCtx context.Context) error {
		// Inside the critical section re-check for an active appointment
		// occupying this slot.
		existing, err := s.repo.FindActive(lockCtx, req.DoctorID, req.Date, req.SlotStart)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check active appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.Create(lockCtx, &Appointment{
			PatientID:  req.PatientID,
			DoctorID:   req.DoctorID,
			HospitalID: req.HospitalID,
			Date:       req.Date,
			SlotStart:  req.SlotStart,
			SlotEnd:    req.SlotEnd,
			Reason:     req.Reason,
			Symptoms:   req.Symptoms,
			// The fee is fixed at the moment of booking; later fee changes
			// must not alter already-booked amounts.
			Amount: doctor.ConsultationFee,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	if err := s.notifier.BookingConfirmed(ctx, notify.BookingConfirmation{
		To:          patient.Email,
		PatientName: patient.Name,
		DoctorName:  doctor.UserName,
		Date:        created.Date,
		SlotStart:   created.SlotStart,
		SlotEnd:     created.SlotEnd,
		Fee:         created.Amount,
	}); err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", created.ID.String()).
			Msg("booking confirmation mail failed")
	}

	return created, nil
}

// Confirm moves a scheduled appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed)
}

// Cancel moves a non-terminal appointment to cancelled, freeing its slot.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(appt.Status, to) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		// The row existed a moment ago; a CAS miss means the status moved
		// under us.
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	return updated, nil
}

// Update applies a free-form patch to a non-terminal appointment. Status
// changes are validated against the transition table; date or slot changes
// keep the slot-conflict invariant through the unique index.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UpdateFields) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
		}
		if !CanTransition(appt.Status, *patch.Status) {
			return nil, ErrInvalidTransition
		}
	}
	if patch.SlotStart != nil || patch.SlotEnd != nil {
		start, end := appt.SlotStart, appt.SlotEnd
		if patch.SlotStart != nil {
			start = *patch.SlotStart
		}
		if patch.SlotEnd != nil {
			end = *patch.SlotEnd
		}
		if err := validateSlot(start, end); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.ApplyPatch(ctx, id, appt.Status, patch)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("apply patch: %w", err)
	}

	return updated, nil
}

// AttachPrescription stores the prescription and completes the appointment in
// the same operation; the two are not independently settable.
func (s *Service) AttachPrescription(ctx context.Context, id uuid.UUID, p *Prescription) (*Appointment, error) {
	if p == nil || len(p.Medicines) == 0 {
		return nil, ErrEmptyPrescription
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.SetPrescription(ctx, id, appt.Status, p)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("set prescription: %w", err)
	}

	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

func validateSlot(start, end string) error {
	st, err := time.Parse("15:04", start)
	if err != nil {
		return fmt.Errorf("%w: bad start time %q", ErrInvalidSlot, start)
	}
	en, err := time.Parse("15:04", end)
	if err != nil {
		return fmt.Errorf("%w: bad end time %q", ErrInvalidSlot, end)
	}
	if !en.After(st) {
		return fmt.Errorf("%w: end %q not after start %q", ErrInvalidSlot, end, start)
	}
	return nil
}
