package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hackgods/healthcare-booking/internal/directory"
	"github.com/hackgods/healthcare-booking/internal/notify"
	"github.com/hackgods/healthcare-booking/internal/payment"
)

var (
	ErrInvalidMethod = errors.New("unknown payment method")
)

// AppointmentLedger is the slice of the appointment repository billing needs
// for the settlement cascade.
type AppointmentLedger interface {
	MarkPaid(ctx context.Context, id uuid.UUID) error
}

type PatientDirectory interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}

// Notifier delivers payment-due reminders.
type Notifier interface {
	PaymentDue(ctx context.Context, n notify.PaymentDueNotice) error
}

type ItemInput struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

type CreateBillInput struct {
	PatientID       uuid.UUID
	AppointmentID   *uuid.UUID
	Items           []ItemInput
	ConsultationFee decimal.Decimal
	MedicinesCost   decimal.Decimal
	TestsCost       decimal.Decimal
	OtherCharges    decimal.Decimal
	Tax             decimal.Decimal
	Discount        decimal.Decimal
	DueDate         *time.Time
}

type Service struct {
	repo         Repository
	appointments AppointmentLedger
	patients     PatientDirectory
	provider     payment.Provider
	notifier     Notifier
	currency     string
	log          zerolog.Logger
}

func NewService(repo Repository, appointments AppointmentLedger, patients PatientDirectory, provider payment.Provider, notifier Notifier, currency string, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		patients:     patients,
		provider:     provider,
		notifier:     notifier,
		currency:     currency,
		log:          log,
	}
}

// CreateBill computes all totals server-side and assigns the bill number
// immediately before persistence. Totals are never accepted from the caller
// and never recomputed afterwards.
func (s *Service) CreateBill(ctx context.Context, in CreateBillInput) (*Bill, error) {
	subtotal := in.ConsultationFee.
		Add(in.MedicinesCost).
		Add(in.TestsCost).
		Add(in.OtherCharges)
	// Negative totals are permitted; discount bounds are the caller's problem.
	total := subtotal.Add(in.Tax).Sub(in.Discount)

	items := make([]Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, Item{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}

	bill := &Bill{
		PatientID:       in.PatientID,
		AppointmentID:   in.AppointmentID,
		Items:           items,
		ConsultationFee: in.ConsultationFee,
		MedicinesCost:   in.MedicinesCost,
		TestsCost:       in.TestsCost,
		OtherCharges:    in.OtherCharges,
		Subtotal:        subtotal,
		Tax:             in.Tax,
		Discount:        in.Discount,
		TotalAmount:     total,
		DueDate:         in.DueDate,
	}

	number, err := s.nextBillNumber(ctx)
	if err != nil {
		return nil, err
	}
	bill.BillNumber = number

	created, err := s.repo.Create(ctx, bill)
	if errors.Is(err, ErrDuplicateBillNumber) {
		// Concurrent creates can race on the sequence; the unique constraint
		// caught it, so re-sequence once and retry.
		number, err = s.nextBillNumber(ctx)
		if err != nil {
			return nil, err
		}
		bill.BillNumber = number
		created, err = s.repo.Create(ctx, bill)
	}
	if err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}

	return created, nil
}

func (s *Service) nextBillNumber(ctx context.Context) (string, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("sequence bill number: %w", err)
	}
	return fmt.Sprintf("BILL-%d-%d", time.Now().UnixMilli(), count+1), nil
}

// CreatePaymentIntent opens a provider-side charge for the bill's total in
// minor currency units. It mutates nothing locally, so callers may retry.
func (s *Service) CreatePaymentIntent(ctx context.Context, billID uuid.UUID) (string, error) {
	bill, err := s.repo.GetByID(ctx, billID)
	if err != nil {
		return "", err
	}

	minor := bill.TotalAmount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	intent, err := s.provider.CreateIntent(ctx, payment.IntentRequest{
		AmountMinor: minor,
		Currency:    s.currency,
		BillID:      bill.ID.String(),
	})
	if err != nil {
		return "", err
	}

	return intent.ClientSecret, nil
}

// RecordPayment marks the bill fully settled and cascades the payment status
// to the linked appointment. If the appointment update fails the bill's
// payment state has already changed; that is logged, not rolled back.
func (s *Service) RecordPayment(ctx context.Context, billID uuid.UUID, method PaymentMethod, providerRef string) (*Bill, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	bill, err := s.repo.RecordPayment(ctx, billID, method, providerRef)
	if err != nil {
		return nil, err
	}

	if bill.AppointmentID != nil {
		if err := s.appointments.MarkPaid(ctx, *bill.AppointmentID); err != nil {
			s.log.Error().Err(err).
				Str("bill_id", bill.ID.String()).
				Str("appointment_id", bill.AppointmentID.String()).
				Msg("bill settled but appointment payment status not updated")
		}
	}

	return bill, nil
}

// SendDueReminders emails patients holding unpaid bills past their due date.
// A bill reminded within olderThan is skipped. Returns the number of
// reminders sent.
func (s *Service) SendDueReminders(ctx context.Context, olderThan time.Duration) (int, error) {
	now := time.Now()

	bills, err := s.repo.FindOverdueUnpaid(ctx, now, now.Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("find overdue bills: %w", err)
	}

	sent := 0
	for _, bill := range bills {
		patient, err := s.patients.GetPatientByID(ctx, bill.PatientID)
		if err != nil {
			s.log.Warn().Err(err).Str("bill_id", bill.ID.String()).Msg("skip reminder, patient lookup failed")
			continue
		}

		err = s.notifier.PaymentDue(ctx, notify.PaymentDueNotice{
			To:          patient.Email,
			PatientName: patient.Name,
			BillNumber:  bill.BillNumber,
			Amount:      bill.TotalAmount,
			DueDate:     *bill.DueDate,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("bill_id", bill.ID.String()).Msg("reminder mail failed")
			continue
		}

		if err := s.repo.MarkReminded(ctx, bill.ID, now); err != nil {
			s.log.Warn().Err(err).Str("bill_id", bill.ID.String()).Msg("failed to stamp reminder")
		}
		sent++
	}

	return sent, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Bill, error) {
	bill, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return bill, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Bill, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	bills, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}
