package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Add runs insert plus rating recompute in one transaction. The rating is
// recomputed from the full review collection, not folded incrementally, so
// repeated additions cannot drift.
func (r *PgRepository) Add(ctx context.Context, rev *Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)`, rev.DoctorID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check doctor: %w", err)
	}
	if !exists {
		return ErrDoctorNotFound
	}

	id := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO reviews (id, doctor_id, patient_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, id, rev.DoctorID, rev.PatientID, rev.Rating, rev.Comment)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE doctors
		SET rating = sub.avg_rating,
		    review_count = sub.review_count,
		    updated_at = now()
		FROM (
			SELECT avg(rating) AS avg_rating, count(*) AS review_count
			FROM reviews
			WHERE doctor_id = $1
		) AS sub
		WHERE doctors.id = $1
	`, rev.DoctorID)
	if err != nil {
		return fmt.Errorf("recompute doctor rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}

	rev.ID = id
	return nil
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, patient_id, rating, comment, created_at
		FROM reviews
		WHERE doctor_id = $1
		ORDER BY created_at DESC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Review
	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.ID, &rev.DoctorID, &rev.PatientID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
