package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trial-funnel/models"
)

const (
	DefaultTrialPeriodDays    = 14
	DefaultLocale             = "pt-BR"
	DefaultProductDescription = "Acesso inicial ao Cristão AI"
	DefaultTermsMessage       = "Ao assinar, você concorda com os Termos de Serviço e reconhece que após o período " +
		"de teste de 14 dias, sua assinatura será renovada automaticamente por R$ 97/mês."

	// CheckoutSessionPlaceholder is expanded by the provider on redirect.
	CheckoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

	reportTimeout = 5 * time.Second
)

const (
	StepCreateProduct  = "create_product"
	StepCreatePrice    = "create_price"
	StepCreateCustomer = "create_customer"
	StepCreateSession  = "create_session"
)

var ErrInvalidAmount = errors.New("invalid amount")

// CheckoutError wraps a provider failure with the call that failed.
type CheckoutError struct {
	Step string
	Err  error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout failed at %s: %v", e.Step, e.Err)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

type Config struct {
	SubscriptionPriceID string
	TrialPeriodDays     int64
	Locale              string
	ProductDescription  string
	TermsMessage        string
}

type TrialRequest struct {
	Amount    int
	Email     string
	Origin    string
	RequestID string
}

type Service struct {
	provider Provider
	reporter OrphanReporter
	cfg      Config
	log      *zap.Logger
}

func NewService(provider Provider, reporter OrphanReporter, cfg Config, log *zap.Logger) *Service {
	if cfg.TrialPeriodDays == 0 {
		cfg.TrialPeriodDays = DefaultTrialPeriodDays
	}
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	if cfg.ProductDescription == "" {
		cfg.ProductDescription = DefaultProductDescription
	}
	if cfg.TermsMessage == "" {
		cfg.TermsMessage = DefaultTermsMessage
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		provider: provider,
		reporter: reporter,
		cfg:      cfg,
		log:      log,
	}
}

// CreateTrialCheckout runs product, price, customer and session creation in
// order. Each call feeds the next, so nothing runs in parallel. There is no
// idempotency key and no rollback: a repeated request creates new provider
// objects, and objects created before a failure are only reported.
func (s *Service) CreateTrialCheckout(ctx context.Context, req TrialRequest) (*CheckoutSession, error) {
	tier, ok := LookupTier(req.Amount)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, req.Amount)
	}

	log := s.log.With(
		zap.String("request_id", req.RequestID),
		zap.Int("trial_amount", req.Amount),
	)
	log.Info("Starting trial checkout")

	report := models.OrphanReport{
		RequestID:   req.RequestID,
		Email:       req.Email,
		TrialAmount: req.Amount,
	}
	fail := func(step string, err error) (*CheckoutSession, error) {
		cerr := &CheckoutError{Step: step, Err: err}
		log.Error("Trial checkout failed", zap.String("step", step), zap.Error(err))
		report.FailedStep = step
		report.Error = err.Error()
		s.reportOrphans(ctx, log, report)
		return nil, cerr
	}

	productID, err := s.provider.CreateProduct(ctx, ProductParams{
		Name:        "Período Teste - " + tier.Label(),
		Description: s.cfg.ProductDescription,
	})
	if err != nil {
		return fail(StepCreateProduct, err)
	}
	report.ProductID = productID

	priceID, err := s.provider.CreatePrice(ctx, PriceParams{
		ProductID:  productID,
		UnitAmount: tier.UnitAmount,
		Currency:   tier.Currency,
	})
	if err != nil {
		return fail(StepCreatePrice, err)
	}
	report.PriceID = priceID

	metadata := map[string]string{"trialAmount": strconv.Itoa(req.Amount)}

	customerID, err := s.provider.CreateCustomer(ctx, CustomerParams{
		Email:    req.Email,
		Metadata: metadata,
	})
	if err != nil {
		return fail(StepCreateCustomer, err)
	}
	report.CustomerID = customerID

	successURL, cancelURL := RedirectURLs(req.Origin)
	session, err := s.provider.CreateCheckoutSession(ctx, SessionParams{
		CustomerID:          customerID,
		TrialPriceID:        priceID,
		SubscriptionPriceID: s.cfg.SubscriptionPriceID,
		TrialPeriodDays:     s.cfg.TrialPeriodDays,
		Metadata:            metadata,
		SuccessURL:          successURL,
		CancelURL:           cancelURL,
		Locale:              s.cfg.Locale,
		TermsMessage:        s.cfg.TermsMessage,
	})
	if err != nil {
		return fail(StepCreateSession, err)
	}
	if session == nil || session.ID == "" {
		return fail(StepCreateSession, errors.New("provider returned no session id"))
	}

	log.Info("Trial checkout session created", zap.String("session_id", session.ID))
	return session, nil
}

// reportOrphans never returns an error: a failed report must not turn one
// checkout failure into two.
func (s *Service) reportOrphans(ctx context.Context, log *zap.Logger, report models.OrphanReport) {
	if len(report.ObjectIDs()) == 0 || s.reporter == nil {
		return
	}
	report.ReportID = uuid.NewString()
	report.CreatedAt = time.Now().UTC()

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	if err := s.reporter.ReportOrphans(rctx, report); err != nil {
		log.Warn("Failed to report orphaned provider objects",
			zap.Strings("object_ids", report.ObjectIDs()),
			zap.Error(err),
		)
	}
}

// RedirectURLs builds the provider success and cancel URLs from the request origin.
func RedirectURLs(origin string) (success, cancel string) {
	origin = strings.TrimRight(origin, "/")
	return origin + "/success?session_id=" + CheckoutSessionPlaceholder, origin + "?canceled=true"
}

// LogReporter is used when no queue is configured.
type LogReporter struct {
	Log *zap.Logger
}

func (r LogReporter) ReportOrphans(_ context.Context, report models.OrphanReport) error {
	r.Log.Warn("Orphaned provider objects after failed checkout",
		zap.String("report_id", report.ReportID),
		zap.String("request_id", report.RequestID),
		zap.String("failed_step", report.FailedStep),
		zap.String("product_id", report.ProductID),
		zap.String("price_id", report.PriceID),
		zap.String("customer_id", report.CustomerID),
	)
	return nil
}
