package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"trial-funnel/models"
)

type fakeProvider struct {
	mu       sync.Mutex
	calls    []string
	failAt   string
	seq      int
	products []ProductParams
	prices   []PriceParams
	custs    []CustomerParams
	sessions []SessionParams
}

func (f *fakeProvider) record(step string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, step)
	if f.failAt == step {
		return "", fmt.Errorf("provider down during %s", step)
	}
	f.seq++
	return fmt.Sprintf("%s_%d", step, f.seq), nil
}

func (f *fakeProvider) CreateProduct(_ context.Context, p ProductParams) (string, error) {
	f.products = append(f.products, p)
	return f.record(StepCreateProduct)
}

func (f *fakeProvider) CreatePrice(_ context.Context, p PriceParams) (string, error) {
	f.prices = append(f.prices, p)
	return f.record(StepCreatePrice)
}

func (f *fakeProvider) CreateCustomer(_ context.Context, p CustomerParams) (string, error) {
	f.custs = append(f.custs, p)
	return f.record(StepCreateCustomer)
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, p SessionParams) (*CheckoutSession, error) {
	f.sessions = append(f.sessions, p)
	id, err := f.record(StepCreateSession)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: "cs_" + id, URL: "https://checkout.example/" + id}, nil
}

type fakeReporter struct {
	reports []models.OrphanReport
	err     error
}

func (r *fakeReporter) ReportOrphans(_ context.Context, report models.OrphanReport) error {
	r.reports = append(r.reports, report)
	return r.err
}

func newTestService(t *testing.T, p Provider, r OrphanReporter) *Service {
	t.Helper()
	return NewService(p, r, Config{SubscriptionPriceID: "price_monthly"}, zaptest.NewLogger(t))
}

func TestCreateTrialCheckoutRejectsUnknownAmounts(t *testing.T) {
	for _, amount := range []int{0, 1, 7, 15, 50, -5} {
		p := &fakeProvider{}
		svc := newTestService(t, p, nil)

		_, err := svc.CreateTrialCheckout(context.Background(), TrialRequest{Amount: amount, Email: "a@b.co"})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %d: err = %v, want ErrInvalidAmount", amount, err)
		}
		if len(p.calls) != 0 {
			t.Errorf("amount %d: provider called %v", amount, p.calls)
		}
	}
}

func TestCreateTrialCheckoutCallsProviderInOrder(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestService(t, p, nil)

	session, err := svc.CreateTrialCheckout(context.Background(), TrialRequest{
		Amount: 5,
		Email:  "a@b.co",
		Origin: "https://funnel.example/",
	})
	if err != nil {
		t.Fatalf("CreateTrialCheckout: %v", err)
	}
	if session.ID == "" {
		t.Fatal("empty session id")
	}

	want := []string{StepCreateProduct, StepCreatePrice, StepCreateCustomer, StepCreateSession}
	if strings.Join(p.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", p.calls, want)
	}

	if !strings.HasPrefix(p.products[0].Name, "Período Teste - R$ 5") {
		t.Errorf("product name = %q", p.products[0].Name)
	}
	if p.prices[0].ProductID != "create_product_1" || p.prices[0].UnitAmount != 500 || p.prices[0].Currency != "brl" {
		t.Errorf("price params = %+v", p.prices[0])
	}
	if p.custs[0].Email != "a@b.co" || p.custs[0].Metadata["trialAmount"] != "5" {
		t.Errorf("customer params = %+v", p.custs[0])
	}

	sp := p.sessions[0]
	if sp.CustomerID != "create_customer_3" || sp.TrialPriceID != "create_price_2" {
		t.Errorf("session ids = %+v", sp)
	}
	if sp.SubscriptionPriceID != "price_monthly" {
		t.Errorf("subscription price = %q", sp.SubscriptionPriceID)
	}
	if sp.TrialPeriodDays != 14 || sp.Locale != "pt-BR" {
		t.Errorf("trial days = %d, locale = %q", sp.TrialPeriodDays, sp.Locale)
	}
	if sp.SuccessURL != "https://funnel.example/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Errorf("success url = %q", sp.SuccessURL)
	}
	if sp.CancelURL != "https://funnel.example?canceled=true" {
		t.Errorf("cancel url = %q", sp.CancelURL)
	}
}

func TestCreateTrialCheckoutIsNotIdempotent(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestService(t, p, nil)
	req := TrialRequest{Amount: 10, Email: "a@b.co", Origin: "https://funnel.example"}

	first, err := svc.CreateTrialCheckout(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.CreateTrialCheckout(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID == second.ID {
		t.Errorf("expected independent sessions, both %q", first.ID)
	}
	if len(p.products) != 2 || len(p.custs) != 2 {
		t.Errorf("expected duplicate provider objects, got %d products %d customers", len(p.products), len(p.custs))
	}
}

func TestCreateTrialCheckoutPartialFailure(t *testing.T) {
	p := &fakeProvider{failAt: StepCreateCustomer}
	r := &fakeReporter{err: errors.New("queue unavailable")}
	svc := newTestService(t, p, r)

	_, err := svc.CreateTrialCheckout(context.Background(), TrialRequest{Amount: 30, Email: "a@b.co", RequestID: "req-1"})

	var cerr *CheckoutError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *CheckoutError", err)
	}
	if cerr.Step != StepCreateCustomer {
		t.Errorf("failed step = %q", cerr.Step)
	}
	if len(p.calls) != 3 {
		t.Errorf("session creation should not run after failure, calls = %v", p.calls)
	}

	if len(r.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(r.reports))
	}
	got := r.reports[0]
	if got.ProductID != "create_product_1" || got.PriceID != "create_price_2" || got.CustomerID != "" {
		t.Errorf("report ids = %+v", got)
	}
	if got.RequestID != "req-1" || got.TrialAmount != 30 || got.FailedStep != StepCreateCustomer {
		t.Errorf("report = %+v", got)
	}
	if got.ReportID == "" || got.ReportID == got.RequestID {
		t.Errorf("report id = %q, want a fresh id", got.ReportID)
	}
}

func TestCreateTrialCheckoutFirstCallFailureReportsNothing(t *testing.T) {
	p := &fakeProvider{failAt: StepCreateProduct}
	r := &fakeReporter{}
	svc := newTestService(t, p, r)

	if _, err := svc.CreateTrialCheckout(context.Background(), TrialRequest{Amount: 5}); err == nil {
		t.Fatal("expected error")
	}
	if len(r.reports) != 0 {
		t.Errorf("nothing was created, got reports %+v", r.reports)
	}
}

func TestTiers(t *testing.T) {
	amounts := TierAmounts()
	if len(amounts) != 3 || amounts[0] != 5 || amounts[1] != 10 || amounts[2] != 30 {
		t.Fatalf("amounts = %v", amounts)
	}
	tier, ok := LookupTier(30)
	if !ok || tier.UnitAmount != 3000 || tier.Currency != "brl" {
		t.Errorf("tier 30 = %+v, %v", tier, ok)
	}
	if _, ok := LookupTier(20); ok {
		t.Error("20 is not a tier")
	}
}

func TestRedirectURLs(t *testing.T) {
	success, cancel := RedirectURLs("http://localhost:3000")
	if success != "http://localhost:3000/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Errorf("success = %q", success)
	}
	if cancel != "http://localhost:3000?canceled=true" {
		t.Errorf("cancel = %q", cancel)
	}
}
