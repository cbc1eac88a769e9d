package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trial-funnel/middleware"
	"trial-funnel/models"
	"trial-funnel/services/payment"
	"trial-funnel/utils"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgInvalidBody      = "Invalid request body"
	msgInvalidAmount    = "Invalid amount"
	msgCheckoutFailed   = "Error creating checkout session"
)

// TrialCheckout is satisfied by *payment.Service.
type TrialCheckout interface {
	CreateTrialCheckout(ctx context.Context, req payment.TrialRequest) (*payment.CheckoutSession, error)
}

type CheckoutHandler struct {
	checkout     TrialCheckout
	publicDomain string
	log          *zap.Logger
}

func NewCheckoutHandler(checkout TrialCheckout, publicDomain string, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, publicDomain: publicDomain, log: log}
}

// CreateCheckoutSession answers POST {amount, email} with the provider session id.
// Provider failures are logged and collapse to one generic 500.
func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	var req models.CheckoutSessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		h.log.Info("Invalid checkout request body", zap.Error(err))
		utils.SendErrorResponse(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	amount, ok := wholeAmount(req.Amount)
	if !ok {
		utils.SendErrorResponse(w, http.StatusBadRequest, msgInvalidAmount)
		return
	}

	session, err := h.checkout.CreateTrialCheckout(r.Context(), payment.TrialRequest{
		Amount:    amount,
		Email:     req.Email,
		Origin:    resolveOrigin(r, h.publicDomain),
		RequestID: requestID(r),
	})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			utils.SendErrorResponse(w, http.StatusBadRequest, msgInvalidAmount)
			return
		}
		h.log.Error("Error creating checkout session", zap.Error(err))
		utils.SendErrorResponse(w, http.StatusInternalServerError, msgCheckoutFailed)
		return
	}

	utils.SendJSON(w, http.StatusOK, models.CheckoutSessionResponse{ID: session.ID})
}

// wholeAmount accepts any JSON number with no fractional part. Tier lookup
// is left to the payment service.
func wholeAmount(n json.Number) (int, bool) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// resolveOrigin prefers the browser's Origin header for redirect URLs.
func resolveOrigin(r *http.Request, fallback string) string {
	if origin := r.Header.Get("Origin"); origin != "" && origin != "null" {
		return origin
	}
	return fallback
}

func requestID(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}
