package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/healthcare-booking/internal/appointment"
	"github.com/hackgods/healthcare-booking/internal/billing"
	"github.com/hackgods/healthcare-booking/internal/directory"
	"github.com/hackgods/healthcare-booking/internal/notify"
	"github.com/hackgods/healthcare-booking/internal/payment"
	"github.com/hackgods/healthcare-booking/internal/review"
)

// The fakes below back the real services so the full HTTP surface runs
// without Postgres or Redis.

type stubDirectory struct {
	doctors   map[uuid.UUID]*directory.Doctor
	patients  map[uuid.UUID]*directory.Patient
	hospitals map[uuid.UUID]*directory.Hospital
}

func (d *stubDirectory) GetPatientByID(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	p, ok := d.patients[id]
	if !ok {
		return nil, directory.ErrPatientNotFound
	}
	return p, nil
}

func (d *stubDirectory) GetDoctorByID(_ context.Context, id uuid.UUID) (*directory.Doctor, error) {
	doc, ok := d.doctors[id]
	if !ok {
		return nil, directory.ErrDoctorNotFound
	}
	return doc, nil
}

func (d *stubDirectory) ListDoctors(_ context.Context, filter directory.DoctorFilter, limit, offset int) ([]directory.Doctor, error) {
	var out []directory.Doctor
	for _, doc := range d.doctors {
		if !doc.Approved {
			continue
		}
		if filter.Specialization != "" && doc.Specialization != filter.Specialization {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (d *stubDirectory) GetHospitalByID(_ context.Context, id uuid.UUID) (*directory.Hospital, error) {
	h, ok := d.hospitals[id]
	if !ok {
		return nil, directory.ErrHospitalNotFound
	}
	return h, nil
}

func (d *stubDirectory) ListHospitals(_ context.Context, limit, offset int) ([]directory.Hospital, error) {
	var out []directory.Hospital
	for _, h := range d.hospitals {
		out = append(out, *h)
	}
	return out, nil
}

type stubApptRepo struct {
	byID map[uuid.UUID]*appointment.Appointment
}

func (r *stubApptRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	appt, ok := r.byID[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *stubApptRepo) FindActive(_ context.Context, doctorID uuid.UUID, date time.Time, slotStart string) (*appointment.Appointment, error) {
	for _, appt := range r.byID {
		if appt.DoctorID == doctorID && appt.Date.Equal(date) && appt.SlotStart == slotStart &&
			(appt.Status == appointment.StatusScheduled || appt.Status == appointment.StatusConfirmed) {
			cp := *appt
			return &cp, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (r *stubApptRepo) Create(_ context.Context, appt *appointment.Appointment) (*appointment.Appointment, error) {
	cp := *appt
	cp.ID = uuid.New()
	cp.Status = appointment.StatusScheduled
	cp.PaymentStatus = appointment.PaymentPending
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *stubApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to appointment.Status) (*appointment.Appointment, error) {
	appt, ok := r.byID[id]
	if !ok || appt.Status != from {
		return nil, appointment.ErrAppointmentNotFound
	}
	appt.Status = to
	cp := *appt
	return &cp, nil
}

func (r *stubApptRepo) ApplyPatch(_ context.Context, id uuid.UUID, from appointment.Status, patch appointment.UpdateFields) (*appointment.Appointment, error) {
	appt, ok := r.byID[id]
	if !ok || appt.Status != from {
		return nil, appointment.ErrAppointmentNotFound
	}
	if patch.Status != nil {
		appt.Status = *patch.Status
	}
	if patch.Notes != nil {
		appt.Notes = *patch.Notes
	}
	if patch.SlotStart != nil {
		appt.SlotStart = *patch.SlotStart
	}
	if patch.SlotEnd != nil {
		appt.SlotEnd = *patch.SlotEnd
	}
	cp := *appt
	return &cp, nil
}

func (r *stubApptRepo) SetPrescription(_ context.Context, id uuid.UUID, from appointment.Status, p *appointment.Prescription) (*appointment.Appointment, error) {
	appt, ok := r.byID[id]
	if !ok || appt.Status != from {
		return nil, appointment.ErrAppointmentNotFound
	}
	appt.Prescription = p
	appt.Status = appointment.StatusCompleted
	cp := *appt
	return &cp, nil
}

func (r *stubApptRepo) MarkPaid(_ context.Context, id uuid.UUID) error {
	appt, ok := r.byID[id]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	appt.PaymentStatus = appointment.PaymentPaid
	return nil
}

func (r *stubApptRepo) List(_ context.Context, filter appointment.ListFilter, limit, offset int) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	for _, appt := range r.byID {
		if filter.PatientID != nil && appt.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && appt.DoctorID != *filter.DoctorID {
			continue
		}
		out = append(out, *appt)
	}
	return out, nil
}

type stubBillRepo struct {
	byID map[uuid.UUID]*billing.Bill
}

func (r *stubBillRepo) GetByID(_ context.Context, id uuid.UUID) (*billing.Bill, error) {
	bill, ok := r.byID[id]
	if !ok {
		return nil, billing.ErrBillNotFound
	}
	cp := *bill
	return &cp, nil
}

func (r *stubBillRepo) Count(context.Context) (int64, error) {
	return int64(len(r.byID)), nil
}

func (r *stubBillRepo) Create(_ context.Context, bill *billing.Bill) (*billing.Bill, error) {
	cp := *bill
	cp.ID = uuid.New()
	cp.PaymentStatus = billing.PaymentPending
	cp.PaidAmount = decimal.Zero
	r.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *stubBillRepo) RecordPayment(_ context.Context, id uuid.UUID, method billing.PaymentMethod, providerRef string) (*billing.Bill, error) {
	bill, ok := r.byID[id]
	if !ok {
		return nil, billing.ErrBillNotFound
	}
	bill.PaymentStatus = billing.PaymentPaid
	bill.PaymentMethod = &method
	bill.PaidAmount = bill.TotalAmount
	if providerRef != "" {
		bill.ProviderRef = &providerRef
	}
	cp := *bill
	return &cp, nil
}

func (r *stubBillRepo) FindOverdueUnpaid(context.Context, time.Time, time.Time) ([]billing.Bill, error) {
	return nil, nil
}

func (r *stubBillRepo) MarkReminded(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (r *stubBillRepo) List(_ context.Context, filter billing.ListFilter, limit, offset int) ([]billing.Bill, error) {
	var out []billing.Bill
	for _, bill := range r.byID {
		out = append(out, *bill)
	}
	return out, nil
}

type stubReviewRepo struct {
	dir     *stubDirectory
	reviews []review.Review
}

func (r *stubReviewRepo) Add(_ context.Context, rev *review.Review) error {
	if _, ok := r.dir.doctors[rev.DoctorID]; !ok {
		return review.ErrDoctorNotFound
	}
	for _, existing := range r.reviews {
		if existing.DoctorID == rev.DoctorID && existing.PatientID == rev.PatientID {
			return review.ErrDuplicateReview
		}
	}
	cp := *rev
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	r.reviews = append(r.reviews, cp)
	return nil
}

func (r *stubReviewRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]review.Review, error) {
	var out []review.Review
	for _, rev := range r.reviews {
		if rev.DoctorID == doctorID {
			out = append(out, rev)
		}
	}
	return out, nil
}

type noopLocker struct{}

func (noopLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _ time.Time, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type noopNotifier struct{}

func (noopNotifier) BookingConfirmed(context.Context, notify.BookingConfirmation) error {
	return nil
}

func (noopNotifier) PaymentDue(context.Context, notify.PaymentDueNotice) error {
	return nil
}

type stubProvider struct{}

func (stubProvider) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	return &payment.Intent{ID: "pi_stub", ClientSecret: "pi_stub_secret"}, nil
}

type testServer struct {
	handler http.Handler
	doctor  *directory.Doctor
	patient *directory.Patient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	doctor := &directory.Doctor{
		ID:              uuid.New(),
		UserName:        "Asha Rao",
		Email:           "asha@example.com",
		Specialization:  "Cardiology",
		ConsultationFee: decimal.NewFromInt(500),
		Approved:        true,
	}
	patient := &directory.Patient{
		ID:    uuid.New(),
		Name:  "Ravi Kumar",
		Email: "ravi@example.com",
	}

	dir := &stubDirectory{
		doctors:   map[uuid.UUID]*directory.Doctor{doctor.ID: doctor},
		patients:  map[uuid.UUID]*directory.Patient{patient.ID: patient},
		hospitals: map[uuid.UUID]*directory.Hospital{},
	}

	apptRepo := &stubApptRepo{byID: make(map[uuid.UUID]*appointment.Appointment)}
	billRepo := &stubBillRepo{byID: make(map[uuid.UUID]*billing.Bill)}
	reviewRepo := &stubReviewRepo{dir: dir}

	apptSvc := appointment.NewService(apptRepo, dir, dir, noopLocker{}, noopNotifier{}, zerolog.Nop())
	billSvc := billing.NewService(billRepo, apptRepo, dir, stubProvider{}, noopNotifier{}, "inr", zerolog.Nop())
	reviewSvc := review.NewService(reviewRepo)

	handler := NewRouter(RouterConfig{
		Appointments: apptSvc,
		Billing:      billSvc,
		Reviews:      reviewSvc,
		Directory:    dir,
		Logger:       zerolog.Nop(),
		Env:          "test",
		Version:      "test",
	})

	return &testServer{handler: handler, doctor: doctor, patient: patient}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) bookingBody() map[string]any {
	return map[string]any{
		"patient_id":       ts.patient.ID.String(),
		"doctor_id":        ts.doctor.ID.String(),
		"appointment_date": "2026-09-14",
		"time_slot": map[string]string{
			"start_time": "10:00",
			"end_time":   "10:30",
		},
		"reason": "Chest pain follow-up",
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", ts.bookingBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeBody[AppointmentResponse](t, rec)
	assert.Equal(t, "scheduled", resp.Status)
	assert.Equal(t, "2026-09-14", resp.Date)
	assert.Equal(t, "10:00", resp.TimeSlot.StartTime)
	assert.True(t, resp.Amount.Equal(decimal.NewFromInt(500)))
}

func TestCreateAppointmentEndpoint_Conflict(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", ts.bookingBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/appointments", ts.bookingBody())
	require.Equal(t, http.StatusConflict, rec.Code)

	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "slot_not_available", resp.Error)
}

func TestCreateAppointmentEndpoint_Validation(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing fields", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/appointments", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad uuid", func(t *testing.T) {
		body := ts.bookingBody()
		body["patient_id"] = "not-a-uuid"
		rec := ts.do(t, http.MethodPost, "/appointments", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_patient_id", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("bad date", func(t *testing.T) {
		body := ts.bookingBody()
		body["appointment_date"] = "14/09/2026"
		rec := ts.do(t, http.MethodPost, "/appointments", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_date", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("unknown patient", func(t *testing.T) {
		body := ts.bookingBody()
		body["patient_id"] = uuid.NewString()
		rec := ts.do(t, http.MethodPost, "/appointments", body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "patient_not_found", decodeBody[ErrorResponse](t, rec).Error)
	})
}

func TestAppointmentLifecycleEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", ts.bookingBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[AppointmentResponse](t, rec)

	rec = ts.do(t, http.MethodGet, "/appointments/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/appointments/"+created.ID.String()+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", decodeBody[AppointmentResponse](t, rec).Status)

	// Second confirm conflicts.
	rec = ts.do(t, http.MethodPost, "/appointments/"+created.ID.String()+"/confirm", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_status_transition", decodeBody[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/appointments/"+created.ID.String()+"/prescription", map[string]any{
		"medicines": []map[string]string{
			{"name": "Atorvastatin", "dosage": "10mg", "frequency": "once daily", "duration": "30 days"},
		},
		"instructions": "Take after dinner",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decodeBody[AppointmentResponse](t, rec)
	assert.Equal(t, "completed", done.Status)
	require.NotNil(t, done.Prescription)

	rec = ts.do(t, http.MethodDelete, "/appointments/"+created.ID.String(), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBillEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/bills", map[string]any{
		"patient_id":       ts.patient.ID.String(),
		"consultation_fee": "500",
		"medicines_cost":   "200",
		"tax":              "50",
		"discount":         "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bill := decodeBody[BillResponse](t, rec)
	assert.True(t, bill.TotalAmount.Equal(decimal.NewFromInt(650)), "total %s", bill.TotalAmount)
	assert.Contains(t, bill.BillNumber, "BILL-")

	rec = ts.do(t, http.MethodPost, "/bills/"+bill.ID.String()+"/payment-intent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pi_stub_secret", decodeBody[PaymentIntentResponse](t, rec).ClientSecret)

	rec = ts.do(t, http.MethodPut, "/bills/"+bill.ID.String()+"/payment", map[string]any{
		"payment_method": "online",
		"provider_ref":   "pi_123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeBody[BillResponse](t, rec)
	assert.Equal(t, "paid", paid.PaymentStatus)
	assert.True(t, paid.PaidAmount.Equal(paid.TotalAmount))

	rec = ts.do(t, http.MethodPut, "/bills/"+bill.ID.String()+"/payment", map[string]any{
		"payment_method": "crypto",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payment_method", decodeBody[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/bills/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewEndpoints(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]any{
		"patient_id": ts.patient.ID.String(),
		"rating":     5,
		"comment":    "very thorough",
	}

	rec := ts.do(t, http.MethodPost, "/doctors/"+ts.doctor.ID.String()+"/reviews", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Same patient reviewing again is rejected.
	rec = ts.do(t, http.MethodPost, "/doctors/"+ts.doctor.ID.String()+"/reviews", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "already_reviewed", decodeBody[ErrorResponse](t, rec).Error)

	// Rating outside 1..5 never reaches the service.
	body["patient_id"] = uuid.NewString()
	body["rating"] = 9
	rec = ts.do(t, http.MethodPost, "/doctors/"+ts.doctor.ID.String()+"/reviews", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/doctors/"+ts.doctor.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[DoctorDetailResponse](t, rec)
	assert.Len(t, detail.Reviews, 1)

	rec = ts.do(t, http.MethodGet, "/doctors/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDoctorsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/doctors?specialization=Cardiology", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[ListResponse[DoctorResponse]](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, ts.doctor.UserName, list.Data[0].Name)

	rec = ts.do(t, http.MethodGet, "/doctors?specialization=Dermatology", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decodeBody[ListResponse[DoctorResponse]](t, rec).Count)
}
