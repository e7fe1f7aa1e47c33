package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var phone *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Phone = phone
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var hospitalID *uuid.UUID

	err := row.Scan(
		&d.ID,
		&d.UserName,
		&d.Email,
		&d.Specialization,
		&d.Qualifications,
		&d.ExperienceYears,
		&d.ConsultationFee,
		&hospitalID,
		&d.Rating,
		&d.ReviewCount,
		&d.Approved,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.HospitalID = hospitalID
	return &d, nil
}

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	var email *string

	err := row.Scan(
		&h.ID,
		&h.Name,
		&h.City,
		&h.State,
		&h.Phone,
		&email,
		&h.Facilities,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}

	h.Email = email
	return &h, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

const doctorColumns = `id, user_name, email, specialization, qualifications,
	experience_years, consultation_fee, hospital_id, rating, review_count,
	approved, created_at, updated_at`

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context, filter DoctorFilter, limit, offset int) ([]Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `
		FROM doctors
		WHERE approved = true`
	args := []any{}

	if filter.Specialization != "" {
		args = append(args, "%"+filter.Specialization+"%")
		query += fmt.Sprintf(" AND specialization ILIKE $%d", len(args))
	}
	if filter.HospitalID != nil {
		args = append(args, *filter.HospitalID)
		query += fmt.Sprintf(" AND hospital_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY rating DESC, user_name LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetHospitalByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, city, state, phone, email, facilities, created_at, updated_at
		FROM hospitals
		WHERE id = $1
	`, id)
	return scanHospital(row)
}

func (r *PgRepository) ListHospitals(ctx context.Context, limit, offset int) ([]Hospital, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, city, state, phone, email, facilities, created_at, updated_at
		FROM hospitals
		ORDER BY name
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
