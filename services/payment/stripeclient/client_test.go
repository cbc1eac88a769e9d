package stripeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"trial-funnel/services/payment"
)

func TestBuildSessionParams(t *testing.T) {
	params := BuildSessionParams(payment.SessionParams{
		CustomerID:          "cus_1",
		TrialPriceID:        "price_trial",
		SubscriptionPriceID: "price_monthly",
		TrialPeriodDays:     14,
		Metadata:            map[string]string{"trialAmount": "5"},
		SuccessURL:          "https://x.example/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:           "https://x.example?canceled=true",
		Locale:              "pt-BR",
		TermsMessage:        "terms",
	})

	if *params.Mode != "subscription" {
		t.Errorf("mode = %q", *params.Mode)
	}
	if len(params.PaymentMethodTypes) != 1 || *params.PaymentMethodTypes[0] != "card" {
		t.Errorf("payment methods = %v", params.PaymentMethodTypes)
	}
	if len(params.LineItems) != 2 {
		t.Fatalf("line items = %d", len(params.LineItems))
	}
	if *params.LineItems[0].Price != "price_trial" || *params.LineItems[1].Price != "price_monthly" {
		t.Errorf("line item prices = %q, %q", *params.LineItems[0].Price, *params.LineItems[1].Price)
	}
	if params.LineItems[1].AdjustableQuantity == nil || *params.LineItems[1].AdjustableQuantity.Enabled {
		t.Error("subscription quantity must not be adjustable")
	}
	if *params.SubscriptionData.TrialPeriodDays != 14 {
		t.Errorf("trial days = %d", *params.SubscriptionData.TrialPeriodDays)
	}
	if params.SubscriptionData.Metadata["trialAmount"] != "5" {
		t.Errorf("subscription metadata = %v", params.SubscriptionData.Metadata)
	}
	if *params.BillingAddressCollection != "required" {
		t.Errorf("billing address = %q", *params.BillingAddressCollection)
	}
	if *params.ConsentCollection.TermsOfService != "required" {
		t.Errorf("terms consent = %q", *params.ConsentCollection.TermsOfService)
	}
	if *params.Locale != "pt-BR" || !*params.AllowPromotionCodes {
		t.Errorf("locale = %q, promotion codes = %v", *params.Locale, *params.AllowPromotionCodes)
	}
	if *params.CustomText.TermsOfServiceAcceptance.Message != "terms" {
		t.Errorf("terms message = %q", *params.CustomText.TermsOfServiceAcceptance.Message)
	}
}

func TestBuildSessionParamsWithoutTermsMessage(t *testing.T) {
	params := BuildSessionParams(payment.SessionParams{Locale: "pt-BR"})
	if params.CustomText != nil {
		t.Error("custom text should be omitted without a message")
	}
}

func TestClientAgainstFakeAPI(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
		forms = map[string]map[string][]string{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		mu.Lock()
		paths = append(paths, r.URL.Path)
		forms[r.URL.Path] = r.PostForm
		mu.Unlock()

		var body map[string]string
		switch r.URL.Path {
		case "/v1/products":
			body = map[string]string{"id": "prod_1", "object": "product"}
		case "/v1/prices":
			body = map[string]string{"id": "price_1", "object": "price"}
		case "/v1/customers":
			body = map[string]string{"id": "cus_1", "object": "customer"}
		case "/v1/checkout/sessions":
			body = map[string]string{"id": "cs_test_1", "object": "checkout.session", "url": "https://checkout.example/cs_test_1"}
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	c := NewClientWithBackends("sk_test_fake", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	ctx := context.Background()
	productID, err := c.CreateProduct(ctx, payment.ProductParams{Name: "Período Teste - R$ 5,00", Description: "d"})
	if err != nil || productID != "prod_1" {
		t.Fatalf("CreateProduct = %q, %v", productID, err)
	}
	priceID, err := c.CreatePrice(ctx, payment.PriceParams{ProductID: productID, UnitAmount: 500, Currency: "brl"})
	if err != nil || priceID != "price_1" {
		t.Fatalf("CreatePrice = %q, %v", priceID, err)
	}
	customerID, err := c.CreateCustomer(ctx, payment.CustomerParams{Email: "a@b.co", Metadata: map[string]string{"trialAmount": "5"}})
	if err != nil || customerID != "cus_1" {
		t.Fatalf("CreateCustomer = %q, %v", customerID, err)
	}
	session, err := c.CreateCheckoutSession(ctx, payment.SessionParams{
		CustomerID:          customerID,
		TrialPriceID:        priceID,
		SubscriptionPriceID: "price_monthly",
		TrialPeriodDays:     14,
		SuccessURL:          "https://x.example/success",
		CancelURL:           "https://x.example",
		Locale:              "pt-BR",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if session.ID != "cs_test_1" || session.URL != "https://checkout.example/cs_test_1" {
		t.Errorf("session = %+v", session)
	}

	want := "/v1/products,/v1/prices,/v1/customers,/v1/checkout/sessions"
	if got := strings.Join(paths, ","); got != want {
		t.Errorf("paths = %s, want %s", got, want)
	}
	if got := forms["/v1/prices"]["unit_amount"]; len(got) != 1 || got[0] != "500" {
		t.Errorf("unit_amount = %v", got)
	}
	if got := forms["/v1/customers"]["metadata[trialAmount]"]; len(got) != 1 || got[0] != "5" {
		t.Errorf("customer metadata = %v", got)
	}
	if got := forms["/v1/checkout/sessions"]["mode"]; len(got) != 1 || got[0] != "subscription" {
		t.Errorf("mode = %v", got)
	}
}
