package billing

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

const billColumns = `id, bill_number, patient_id, appointment_id, items,
	consultation_fee, medicines_cost, tests_cost, other_charges, subtotal,
	tax, discount, total_amount, payment_method, payment_status, paid_amount,
	provider_ref, due_date, last_reminded_at, created_at, updated_at`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	var appointmentID *uuid.UUID
	var items []byte
	var method *PaymentMethod
	var providerRef *string

	err := row.Scan(
		&b.ID,
		&b.BillNumber,
		&b.PatientID,
		&appointmentID,
		&items,
		&b.ConsultationFee,
		&b.MedicinesCost,
		&b.TestsCost,
		&b.OtherCharges,
		&b.Subtotal,
		&b.Tax,
		&b.Discount,
		&b.TotalAmount,
		&method,
		&b.PaymentStatus,
		&b.PaidAmount,
		&providerRef,
		&b.DueDate,
		&b.LastRemindedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}

	b.AppointmentID = appointmentID
	b.PaymentMethod = method
	b.ProviderRef = providerRef
	if len(items) > 0 {
		if err := json.Unmarshal(items, &b.Items); err != nil {
			return nil, fmt.Errorf("decode bill items: %w", err)
		}
	}
	return &b, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE id = $1
	`, id)
	return scanBill(row)
}

func (r *PgRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM bills`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bills: %w", err)
	}
	return n, nil
}

func (r *PgRepository) Create(ctx context.Context, bill *Bill) (*Bill, error) {
	id := uuid.New()

	items := bill.Items
	if items == nil {
		items = []Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode bill items: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO bills (
			id, bill_number, patient_id, appointment_id, items,
			consultation_fee, medicines_cost, tests_cost, other_charges,
			subtotal, tax, discount, total_amount,
			payment_status, paid_amount, due_date, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'pending', 0, $14, now(), now())
		RETURNING `+billColumns+`
	`, id, bill.BillNumber, bill.PatientID, bill.AppointmentID, itemsJSON,
		bill.ConsultationFee, bill.MedicinesCost, bill.TestsCost, bill.OtherCharges,
		bill.Subtotal, bill.Tax, bill.Discount, bill.TotalAmount, bill.DueDate)

	created, err := scanBill(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateBillNumber
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) RecordPayment(ctx context.Context, id uuid.UUID, method PaymentMethod, providerRef string) (*Bill, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bills
		SET payment_status = 'paid',
		    payment_method = $2,
		    paid_amount    = total_amount,
		    provider_ref   = NULLIF($3, ''),
		    updated_at     = now()
		WHERE id = $1
		RETURNING `+billColumns+`
	`, id, method, providerRef)

	return scanBill(row)
}

func (r *PgRepository) FindOverdueUnpaid(ctx context.Context, asOf, remindedBefore time.Time) ([]Bill, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE payment_status = 'pending'
		  AND due_date IS NOT NULL
		  AND due_date < $1
		  AND (last_reminded_at IS NULL OR last_reminded_at < $2)
	`, asOf, remindedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBills(rows)
}

func (r *PgRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE bills
		SET last_reminded_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark bill reminded: %w", err)
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills
		WHERE true`
	args := []any{}

	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBills(rows)
}

func collectBills(rows pgx.Rows) ([]Bill, error) {
	var result []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
