package payment

import (
	"context"

	"trial-funnel/models"
)

type ProductParams struct {
	Name        string
	Description string
}

type PriceParams struct {
	ProductID  string
	UnitAmount int64
	Currency   string
}

type CustomerParams struct {
	Email    string
	Metadata map[string]string
}

// SessionParams carries the per-request values of a trial checkout session.
// Fixed session options belong to the Provider implementation.
type SessionParams struct {
	CustomerID          string
	TrialPriceID        string
	SubscriptionPriceID string
	TrialPeriodDays     int64
	Metadata            map[string]string
	SuccessURL          string
	CancelURL           string
	Locale              string
	TermsMessage        string
}

// CheckoutSession is owned by the provider; only the id and hosted URL are kept.
type CheckoutSession struct {
	ID  string
	URL string
}

type Provider interface {
	CreateProduct(ctx context.Context, params ProductParams) (string, error)
	CreatePrice(ctx context.Context, params PriceParams) (string, error)
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*CheckoutSession, error)
}

type OrphanReporter interface {
	ReportOrphans(ctx context.Context, report models.OrphanReport) error
}
