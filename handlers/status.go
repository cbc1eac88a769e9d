package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"trial-funnel/models"
	"trial-funnel/services/payment"
	"trial-funnel/utils"
)

// PingFunc checks one dependency. A nil PingFunc means the dependency is not configured.
type PingFunc func(ctx context.Context) error

type StatusHandler struct {
	publishableKey string
	trialDays      int
	startTime      time.Time
	dbPing         PingFunc
	redisPing      PingFunc
}

func NewStatusHandler(publishableKey string, trialDays int, dbPing, redisPing PingFunc) *StatusHandler {
	return &StatusHandler{
		publishableKey: publishableKey,
		trialDays:      trialDays,
		startTime:      time.Now(),
		dbPing:         dbPing,
		redisPing:      redisPing,
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Time      string `json:"time"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
	Uptime    string `json:"uptime"`
	GoVersion string `json:"go_version"`
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := healthResponse{
		Status:    "ok",
		Time:      time.Now().UTC().Format(time.RFC3339),
		Uptime:    fmt.Sprintf("%v", time.Since(h.startTime).Round(time.Second)),
		GoVersion: runtime.Version(),
	}

	var degraded bool
	health.Database, degraded = checkDependency(ctx, h.dbPing)
	if degraded {
		health.Status = "degraded"
	}
	health.Redis, degraded = checkDependency(ctx, h.redisPing)
	if degraded {
		health.Status = "degraded"
	}

	utils.SendJSON(w, http.StatusOK, health)
}

func checkDependency(ctx context.Context, ping PingFunc) (state string, degraded bool) {
	if ping == nil {
		return "not_configured", false
	}
	pctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := ping(pctx); err != nil {
		return "error", true
	}
	return "connected", false
}

// PublicConfig exposes what a browser client needs to start a checkout.
func (h *StatusHandler) PublicConfig(w http.ResponseWriter, r *http.Request) {
	tiers := payment.Tiers()
	resp := models.PublicConfigResponse{
		PublishableKey: h.publishableKey,
		TrialDays:      h.trialDays,
		Tiers:          make([]models.TrialTierResponse, 0, len(tiers)),
	}
	for _, t := range tiers {
		resp.Tiers = append(resp.Tiers, models.TrialTierResponse{
			Amount:     t.Amount,
			UnitAmount: t.UnitAmount,
			Currency:   t.Currency,
			Label:      t.Label(),
		})
	}
	utils.SendJSON(w, http.StatusOK, resp)
}
