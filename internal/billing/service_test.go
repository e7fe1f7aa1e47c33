package billing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/healthcare-booking/internal/directory"
	"github.com/hackgods/healthcare-booking/internal/notify"
	"github.com/hackgods/healthcare-booking/internal/payment"
)

type fakeBillRepo struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*Bill
	byNumber  map[string]uuid.UUID
	failDupes int // make the next N creates fail with a duplicate number
}

func newFakeBillRepo() *fakeBillRepo {
	return &fakeBillRepo{
		byID:     make(map[uuid.UUID]*Bill),
		byNumber: make(map[string]uuid.UUID),
	}
}

func (r *fakeBillRepo) GetByID(_ context.Context, id uuid.UUID) (*Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.byID[id]
	if !ok {
		return nil, ErrBillNotFound
	}
	cp := *bill
	return &cp, nil
}

func (r *fakeBillRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

func (r *fakeBillRepo) Create(_ context.Context, bill *Bill) (*Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDupes > 0 {
		r.failDupes--
		return nil, ErrDuplicateBillNumber
	}
	if _, taken := r.byNumber[bill.BillNumber]; taken {
		return nil, ErrDuplicateBillNumber
	}
	cp := *bill
	cp.ID = uuid.New()
	cp.PaymentStatus = PaymentPending
	cp.PaidAmount = decimal.Zero
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.byID[cp.ID] = &cp
	r.byNumber[cp.BillNumber] = cp.ID
	out := cp
	return &out, nil
}

func (r *fakeBillRepo) RecordPayment(_ context.Context, id uuid.UUID, method PaymentMethod, providerRef string) (*Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.byID[id]
	if !ok {
		return nil, ErrBillNotFound
	}
	bill.PaymentStatus = PaymentPaid
	bill.PaymentMethod = &method
	bill.PaidAmount = bill.TotalAmount
	if providerRef != "" {
		bill.ProviderRef = &providerRef
	}
	bill.UpdatedAt = time.Now()
	cp := *bill
	return &cp, nil
}

func (r *fakeBillRepo) FindOverdueUnpaid(_ context.Context, asOf, remindedBefore time.Time) ([]Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Bill
	for _, bill := range r.byID {
		if bill.PaymentStatus != PaymentPending || bill.DueDate == nil || !bill.DueDate.Before(asOf) {
			continue
		}
		if bill.LastRemindedAt != nil && !bill.LastRemindedAt.Before(remindedBefore) {
			continue
		}
		out = append(out, *bill)
	}
	return out, nil
}

func (r *fakeBillRepo) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bill, ok := r.byID[id]
	if !ok {
		return ErrBillNotFound
	}
	bill.LastRemindedAt = &at
	return nil
}

func (r *fakeBillRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Bill
	for _, bill := range r.byID {
		if filter.PatientID != nil && bill.PatientID != *filter.PatientID {
			continue
		}
		out = append(out, *bill)
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeLedger struct {
	paid []uuid.UUID
	err  error
}

func (l *fakeLedger) MarkPaid(_ context.Context, id uuid.UUID) error {
	if l.err != nil {
		return l.err
	}
	l.paid = append(l.paid, id)
	return nil
}

type fakePatients struct {
	patients map[uuid.UUID]*directory.Patient
}

func (p *fakePatients) GetPatientByID(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	patient, ok := p.patients[id]
	if !ok {
		return nil, directory.ErrPatientNotFound
	}
	return patient, nil
}

type fakeProvider struct {
	lastReq payment.IntentRequest
	err     error
}

func (p *fakeProvider) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.lastReq = req
	return &payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

type fakeDueNotifier struct {
	notices []notify.PaymentDueNotice
	err     error
}

func (n *fakeDueNotifier) PaymentDue(_ context.Context, notice notify.PaymentDueNotice) error {
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, notice)
	return nil
}

type billFixture struct {
	svc      *Service
	repo     *fakeBillRepo
	ledger   *fakeLedger
	provider *fakeProvider
	notifier *fakeDueNotifier
	patient  *directory.Patient
}

func newBillFixture(t *testing.T) *billFixture {
	t.Helper()

	patient := &directory.Patient{
		ID:    uuid.New(),
		Name:  "Meera Nair",
		Email: "meera@example.com",
	}

	repo := newFakeBillRepo()
	ledger := &fakeLedger{}
	provider := &fakeProvider{}
	notifier := &fakeDueNotifier{}
	patients := &fakePatients{patients: map[uuid.UUID]*directory.Patient{patient.ID: patient}}

	svc := NewService(repo, ledger, patients, provider, notifier, "inr", zerolog.Nop())

	return &billFixture{
		svc:      svc,
		repo:     repo,
		ledger:   ledger,
		provider: provider,
		notifier: notifier,
		patient:  patient,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateBill_Totals(t *testing.T) {
	f := newBillFixture(t)

	bill, err := f.svc.CreateBill(context.Background(), CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("500"),
		MedicinesCost:   dec("200"),
		Tax:             dec("50"),
		Discount:        dec("100"),
	})
	require.NoError(t, err)

	assert.True(t, bill.Subtotal.Equal(dec("700")), "subtotal %s", bill.Subtotal)
	assert.True(t, bill.TotalAmount.Equal(dec("650")), "total %s", bill.TotalAmount)
	assert.Equal(t, PaymentPending, bill.PaymentStatus)
	assert.True(t, bill.PaidAmount.IsZero())
}

func TestCreateBill_AllComponentsAndLineTotals(t *testing.T) {
	f := newBillFixture(t)

	bill, err := f.svc.CreateBill(context.Background(), CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("500"),
		MedicinesCost:   dec("320.50"),
		TestsCost:       dec("1200"),
		OtherCharges:    dec("79.50"),
		Tax:             dec("180"),
		Discount:        dec("0"),
		Items: []ItemInput{
			{Description: "Paracetamol 500mg", Quantity: 2, UnitPrice: dec("35.25")},
			{Description: "Lipid profile", Quantity: 1, UnitPrice: dec("1200")},
		},
	})
	require.NoError(t, err)

	assert.True(t, bill.Subtotal.Equal(dec("2100")), "subtotal %s", bill.Subtotal)
	assert.True(t, bill.TotalAmount.Equal(dec("2280")), "total %s", bill.TotalAmount)

	require.Len(t, bill.Items, 2)
	assert.True(t, bill.Items[0].LineTotal.Equal(dec("70.50")))
	assert.True(t, bill.Items[1].LineTotal.Equal(dec("1200")))
}

func TestCreateBill_NumberFormat(t *testing.T) {
	f := newBillFixture(t)

	bill, err := f.svc.CreateBill(context.Background(), CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("300"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(bill.BillNumber, "BILL-"), "got %q", bill.BillNumber)
	assert.True(t, strings.HasSuffix(bill.BillNumber, "-1"), "first bill sequences at 1, got %q", bill.BillNumber)

	second, err := f.svc.CreateBill(context.Background(), CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("300"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, bill.BillNumber, second.BillNumber)
}

func TestCreateBill_RetriesOnDuplicateNumber(t *testing.T) {
	f := newBillFixture(t)
	f.repo.failDupes = 1

	bill, err := f.svc.CreateBill(context.Background(), CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("300"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, bill.BillNumber)
}

func TestCreateBill_GivesUpAfterSecondDuplicate(t *testing.T) {
	f := newBillFixture(t)
	f.repo.failDupes = 2

	_, err := f.svc.CreateBill(context.Background(), CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("300"),
	})
	assert.ErrorIs(t, err, ErrDuplicateBillNumber)
}

func TestCreatePaymentIntent(t *testing.T) {
	f := newBillFixture(t)
	ctx := context.Background()

	bill, err := f.svc.CreateBill(ctx, CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("650.50"),
	})
	require.NoError(t, err)

	secret, err := f.svc.CreatePaymentIntent(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_test_secret", secret)

	assert.Equal(t, int64(65050), f.provider.lastReq.AmountMinor)
	assert.Equal(t, "inr", f.provider.lastReq.Currency)
	assert.Equal(t, bill.ID.String(), f.provider.lastReq.BillID)
}

func TestCreatePaymentIntent_Errors(t *testing.T) {
	f := newBillFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePaymentIntent(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrBillNotFound)

	bill, err := f.svc.CreateBill(ctx, CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("300"),
	})
	require.NoError(t, err)

	f.provider.err = payment.ErrProviderFailure
	_, err = f.svc.CreatePaymentIntent(ctx, bill.ID)
	assert.ErrorIs(t, err, payment.ErrProviderFailure)
}

func TestRecordPayment(t *testing.T) {
	f := newBillFixture(t)
	ctx := context.Background()

	apptID := uuid.New()
	bill, err := f.svc.CreateBill(ctx, CreateBillInput{
		PatientID:       f.patient.ID,
		AppointmentID:   &apptID,
		ConsultationFee: dec("500"),
	})
	require.NoError(t, err)

	paid, err := f.svc.RecordPayment(ctx, bill.ID, MethodOnline, "pi_123")
	require.NoError(t, err)

	assert.Equal(t, PaymentPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, MethodOnline, *paid.PaymentMethod)
	assert.True(t, paid.PaidAmount.Equal(paid.TotalAmount))
	require.NotNil(t, paid.ProviderRef)
	assert.Equal(t, "pi_123", *paid.ProviderRef)

	// The linked appointment settles too.
	require.Len(t, f.ledger.paid, 1)
	assert.Equal(t, apptID, f.ledger.paid[0])
}

func TestRecordPayment_InvalidMethod(t *testing.T) {
	f := newBillFixture(t)

	_, err := f.svc.RecordPayment(context.Background(), uuid.New(), PaymentMethod("crypto"), "")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestRecordPayment_CascadeFailureStillSettlesBill(t *testing.T) {
	f := newBillFixture(t)
	ctx := context.Background()

	apptID := uuid.New()
	bill, err := f.svc.CreateBill(ctx, CreateBillInput{
		PatientID:       f.patient.ID,
		AppointmentID:   &apptID,
		ConsultationFee: dec("500"),
	})
	require.NoError(t, err)

	f.ledger.err = errors.New("appointment gone")

	paid, err := f.svc.RecordPayment(ctx, bill.ID, MethodCash, "")
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, paid.PaymentStatus)
}

func TestRecordPayment_NoLinkedAppointment(t *testing.T) {
	f := newBillFixture(t)
	ctx := context.Background()

	bill, err := f.svc.CreateBill(ctx, CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("500"),
	})
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, bill.ID, MethodCard, "")
	require.NoError(t, err)
	assert.Empty(t, f.ledger.paid)
}

func TestSendDueReminders(t *testing.T) {
	f := newBillFixture(t)
	ctx := context.Background()

	overdue := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)

	lapsed, err := f.svc.CreateBill(ctx, CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("500"),
		DueDate:         &overdue,
	})
	require.NoError(t, err)

	_, err = f.svc.CreateBill(ctx, CreateBillInput{
		PatientID:       f.patient.ID,
		ConsultationFee: dec("300"),
		DueDate:         &future,
	})
	require.NoError(t, err)

	sent, err := f.svc.SendDueReminders(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, f.notifier.notices, 1)
	notice := f.notifier.notices[0]
	assert.Equal(t, f.patient.Email, notice.To)
	assert.Equal(t, lapsed.BillNumber, notice.BillNumber)
	assert.True(t, notice.Amount.Equal(lapsed.TotalAmount))

	// Reminded a moment ago, so a second sweep stays quiet.
	sent, err = f.svc.SendDueReminders(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestSendDueReminders_SkipsOnLookupOrMailFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown patient", func(t *testing.T) {
		f := newBillFixture(t)
		overdue := time.Now().Add(-time.Hour)
		_, err := f.svc.CreateBill(ctx, CreateBillInput{
			PatientID:       uuid.New(),
			ConsultationFee: dec("500"),
			DueDate:         &overdue,
		})
		require.NoError(t, err)

		sent, err := f.svc.SendDueReminders(ctx, time.Hour)
		require.NoError(t, err)
		assert.Zero(t, sent)
	})

	t.Run("mail failure leaves bill unreminded", func(t *testing.T) {
		f := newBillFixture(t)
		overdue := time.Now().Add(-time.Hour)
		_, err := f.svc.CreateBill(ctx, CreateBillInput{
			PatientID:       f.patient.ID,
			ConsultationFee: dec("500"),
			DueDate:         &overdue,
		})
		require.NoError(t, err)

		f.notifier.err = errors.New("smtp down")
		sent, err := f.svc.SendDueReminders(ctx, time.Hour)
		require.NoError(t, err)
		assert.Zero(t, sent)

		// Mail comes back; the bill is still eligible.
		f.notifier.err = nil
		sent, err = f.svc.SendDueReminders(ctx, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
	})
}

func TestPaymentMethodValid(t *testing.T) {
	for _, m := range []PaymentMethod{MethodCash, MethodCard, MethodOnline, MethodInsurance} {
		assert.True(t, m.Valid(), "%s", m)
	}
	assert.False(t, PaymentMethod("crypto").Valid())
	assert.False(t, PaymentMethod("").Valid())
}
