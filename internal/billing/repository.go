package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBillNotFound        = errors.New("bill not found")
	ErrDuplicateBillNumber = errors.New("bill number already exists")
)

// ListFilter narrows List. Zero values mean no filtering.
type ListFilter struct {
	PatientID *uuid.UUID
}

// Repository contains all DB interactions needed by the billing service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)

	// Count reports the number of bills ever created; used for bill-number
	// sequencing.
	Count(ctx context.Context) (int64, error)

	// Create inserts the bill. A unique violation on bill_number is reported
	// as ErrDuplicateBillNumber so the caller can re-sequence and retry.
	Create(ctx context.Context, bill *Bill) (*Bill, error)

	// RecordPayment marks the bill fully paid in a single statement. The paid
	// amount is always the bill's own total, read inside the statement.
	RecordPayment(ctx context.Context, id uuid.UUID, method PaymentMethod, providerRef string) (*Bill, error)

	// FindOverdueUnpaid reports unpaid bills whose due date has passed and
	// which have not been reminded since remindedBefore.
	FindOverdueUnpaid(ctx context.Context, asOf, remindedBefore time.Time) ([]Bill, error)

	// MarkReminded stamps last_reminded_at after a reminder mail goes out.
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error

	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Bill, error)
}
