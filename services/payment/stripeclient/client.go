// Package stripeclient implements payment.Provider on top of the Stripe SDK.
// The SDK client is built once and injected; the package never touches the
// global stripe.Key.
package stripeclient

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"trial-funnel/services/payment"
)

const (
	paymentMethodCard = "card"
	consentRequired   = "required"
)

type Client struct {
	api *client.API
}

func NewClient(secretKey string) *Client {
	return &Client{api: client.New(secretKey, nil)}
}

// NewClientWithBackends lets callers point the SDK at another API host.
func NewClientWithBackends(secretKey string, backends *stripe.Backends) *Client {
	return &Client{api: client.New(secretKey, backends)}
}

func (c *Client) CreateProduct(ctx context.Context, p payment.ProductParams) (string, error) {
	params := &stripe.ProductParams{
		Name:        stripe.String(p.Name),
		Description: stripe.String(p.Description),
	}
	params.Context = ctx

	product, err := c.api.Products.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create product: %w", err)
	}
	return product.ID, nil
}

func (c *Client) CreatePrice(ctx context.Context, p payment.PriceParams) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(p.ProductID),
		UnitAmount: stripe.Int64(p.UnitAmount),
		Currency:   stripe.String(p.Currency),
	}
	params.Context = ctx

	price, err := c.api.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create price: %w", err)
	}
	return price.ID, nil
}

func (c *Client) CreateCustomer(ctx context.Context, p payment.CustomerParams) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(p.Email),
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	customer, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return customer.ID, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, p payment.SessionParams) (*payment.CheckoutSession, error) {
	params := BuildSessionParams(p)
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &payment.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// BuildSessionParams maps a trial request onto a subscription-mode session:
// the one-off trial price and the recurring price as line items, mandatory
// billing address and terms-of-service consent.
func BuildSessionParams(p payment.SessionParams) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{paymentMethodCard}),
		Customer:           stripe.String(p.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.TrialPriceID),
				Quantity: stripe.Int64(1),
			},
			{
				Price:    stripe.String(p.SubscriptionPriceID),
				Quantity: stripe.Int64(1),
				AdjustableQuantity: &stripe.CheckoutSessionLineItemAdjustableQuantityParams{
					Enabled: stripe.Bool(false),
				},
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(p.TrialPeriodDays),
			Metadata:        p.Metadata,
		},
		SuccessURL:               stripe.String(p.SuccessURL),
		CancelURL:                stripe.String(p.CancelURL),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		Locale:                   stripe.String(p.Locale),
		AllowPromotionCodes:      stripe.Bool(true),
		ConsentCollection: &stripe.CheckoutSessionConsentCollectionParams{
			TermsOfService: stripe.String(consentRequired),
		},
	}
	if p.TermsMessage != "" {
		params.CustomText = &stripe.CheckoutSessionCustomTextParams{
			TermsOfServiceAcceptance: &stripe.CheckoutSessionCustomTextTermsOfServiceAcceptanceParams{
				Message: stripe.String(p.TermsMessage),
			},
		}
	}
	return params
}
