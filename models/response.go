package models

import "encoding/json"

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CheckoutSessionRequest keeps the amount as the raw JSON number so 5 and
// 5.0 name the same tier.
type CheckoutSessionRequest struct {
	Amount json.Number `json:"amount"`
	Email  string      `json:"email"`
}

type CheckoutSessionResponse struct {
	ID string `json:"id"`
}

type TrialTierResponse struct {
	Amount     int    `json:"amount"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
	Label      string `json:"label"`
}

type PublicConfigResponse struct {
	PublishableKey string              `json:"publishable_key"`
	TrialDays      int                 `json:"trial_days"`
	Tiers          []TrialTierResponse `json:"tiers"`
}

type OrphanListResponse struct {
	Orphans []OrphanReport `json:"orphans"`
	Count   int            `json:"count"`
}
