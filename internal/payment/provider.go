package payment

import (
	"context"
	"errors"
)

var (
	ErrProviderFailure = errors.New("payment provider request failed")
)

// IntentRequest asks the provider to open a charge for a bill. Amount is in
// minor currency units (paise for INR).
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	BillID      string
}

// Intent is the provider-side handle for an in-progress charge. ClientSecret
// is handed to the front end to complete the payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// Provider is the outbound port to the payment gateway. Creating an intent
// never mutates local state, so callers may retry it safely.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}
