package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const apptColumns = `id, patient_id, doctor_id, hospital_id, appointment_date,
	slot_start, slot_end, status, reason, symptoms, notes, prescription,
	payment_status, amount, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var hospitalID *uuid.UUID
	var prescription []byte

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&hospitalID,
		&a.Date,
		&a.SlotStart,
		&a.SlotEnd,
		&a.Status,
		&a.Reason,
		&a.Symptoms,
		&a.Notes,
		&prescription,
		&a.PaymentStatus,
		&a.Amount,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.HospitalID = hospitalID
	if len(prescription) > 0 {
		var p Prescription
		if err := json.Unmarshal(prescription, &p); err != nil {
			return nil, fmt.Errorf("decode prescription: %w", err)
		}
		a.Prescription = &p
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindActive(ctx context.Context, doctorID uuid.UUID, date time.Time, slotStart string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND slot_start = $3
		  AND status IN ('scheduled', 'confirmed')
	`, doctorID, date, slotStart)
	return scanAppointment(row)
}

func (r *PgRepository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := uuid.New()

	var prescription []byte
	if appt.Prescription != nil {
		var err error
		prescription, err = json.Marshal(appt.Prescription)
		if err != nil {
			return nil, fmt.Errorf("encode prescription: %w", err)
		}
	}

	symptoms := appt.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, hospital_id, appointment_date,
			slot_start, slot_end, status, reason, symptoms, notes,
			prescription, payment_status, amount, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8, $9, $10, $11, 'pending', $12, now(), now())
		RETURNING `+apptColumns+`
	`, id, appt.PatientID, appt.DoctorID, appt.HospitalID, appt.Date,
		appt.SlotStart, appt.SlotEnd, appt.Reason, symptoms, appt.Notes,
		prescription, appt.Amount)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) ApplyPatch(ctx context.Context, id uuid.UUID, from Status, patch UpdateFields) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status           = COALESCE($3, status),
		    appointment_date = COALESCE($4, appointment_date),
		    slot_start       = COALESCE($5, slot_start),
		    slot_end         = COALESCE($6, slot_end),
		    notes            = COALESCE($7, notes),
		    updated_at       = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+apptColumns+`
	`, id, from, patch.Status, patch.Date, patch.SlotStart, patch.SlotEnd, patch.Notes)

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) SetPrescription(ctx context.Context, id uuid.UUID, from Status, p *Prescription) (*Appointment, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode prescription: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET prescription = $3,
		    status       = 'completed',
		    updated_at   = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+apptColumns+`
	`, id, from, data)

	return scanAppointment(row)
}

func (r *PgRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET payment_status = 'paid',
		    updated_at     = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark appointment paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + `
		FROM appointments
		WHERE true`
	args := []any{}

	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filter.DoctorID != nil {
		args = append(args, *filter.DoctorID)
		query += fmt.Sprintf(" AND doctor_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY appointment_date DESC, slot_start DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
