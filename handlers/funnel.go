package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"trial-funnel/funnel"
	"trial-funnel/services/payment"
	"trial-funnel/views"
)

const (
	sessionName = "funnel"
	visitorKey  = "visitor"

	msgCheckoutInFlight = "Seu pagamento já está sendo processado. Aguarde."
	msgCheckoutRetry    = "Não foi possível iniciar o pagamento. Tente novamente."
)

var pageTitles = map[string]string{
	funnel.LandingFlow:    "Cristão IA",
	funnel.FaceYogaPTFlow: "Face Yoga",
	funnel.FaceYogaENFlow: "Face Yoga",
}

// NewSessionStore builds the signed cookie store holding funnel state.
func NewSessionStore(secret, domain string, maxAge int, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   domain,
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// FunnelHandler serves the screens and resolves button presses through each
// flow's edge map. The visitor's position lives in a cookie session.
type FunnelHandler struct {
	flows        map[string]*funnel.Flow
	store        sessions.Store
	checkout     TrialCheckout
	publicDomain string
	log          *zap.Logger

	// inFlight holds visitor ids with a checkout running.
	inFlight sync.Map
}

func NewFunnelHandler(flows map[string]*funnel.Flow, store sessions.Store, checkout TrialCheckout, publicDomain string, log *zap.Logger) *FunnelHandler {
	return &FunnelHandler{
		flows:        flows,
		store:        store,
		checkout:     checkout,
		publicDomain: publicDomain,
		log:          log,
	}
}

// Register mounts the page and form routes.
func (h *FunnelHandler) Register(r *mux.Router) {
	r.HandleFunc("/", h.Landing).Methods(http.MethodGet)
	r.HandleFunc("/success", h.Success).Methods(http.MethodGet)
	r.HandleFunc("/quiz/{flow}", h.Quiz).Methods(http.MethodGet)

	f := r.PathPrefix("/funnel/{flow}").Subrouter()
	f.HandleFunc("/advance", h.Advance).Methods(http.MethodPost)
	f.HandleFunc("/back", h.Back).Methods(http.MethodPost)
	f.HandleFunc("/email", h.SubmitEmail).Methods(http.MethodPost)
	f.HandleFunc("/amount", h.SelectAmount).Methods(http.MethodPost)
	f.HandleFunc("/checkout", h.Checkout).Methods(http.MethodPost)
}

// Landing serves the landing flow at the site root.
func (h *FunnelHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.showFlow(w, r, funnel.LandingFlow)
}

// Quiz serves /quiz/{flow}.
func (h *FunnelHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	h.showFlow(w, r, mux.Vars(r)["flow"])
}

func (h *FunnelHandler) showFlow(w http.ResponseWriter, r *http.Request, name string) {
	flow, ok := h.flows[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	session := h.session(r)
	state := loadState(session, flow)
	h.render(w, r, http.StatusOK, flow, state, views.ScreenView{})
}

// Advance follows the edge for the posted choice.
func (h *FunnelHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.follow(w, r, funnel.Choice(r.PostFormValue("choice")))
}

// Back follows the screen's authored back edge.
func (h *FunnelHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.follow(w, r, funnel.ChoiceBack)
}

func (h *FunnelHandler) follow(w http.ResponseWriter, r *http.Request, choice funnel.Choice) {
	flow, session, ok := h.flowSession(w, r)
	if !ok {
		return
	}

	state, err := loadState(session, flow).Advance(flow, choice)
	if err != nil {
		h.log.Info("Rejected funnel choice",
			zap.String("flow", flow.Name()),
			zap.String("choice", string(choice)),
			zap.Error(err),
		)
		http.Error(w, "Invalid choice", http.StatusBadRequest)
		return
	}

	h.saveAndRedirect(w, r, session, flow, state)
}

// SubmitEmail validates the email field. An invalid value re-renders the
// screen with the inline message and leaves the step unchanged.
func (h *FunnelHandler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	flow, session, ok := h.flowSession(w, r)
	if !ok {
		return
	}

	email := r.PostFormValue("email")
	current := loadState(session, flow)
	state, err := current.SubmitEmail(flow, email)
	switch {
	case err == nil:
		h.saveAndRedirect(w, r, session, flow, state)
	case errors.Is(err, funnel.ErrEmailRequired), errors.Is(err, funnel.ErrEmailInvalid):
		h.render(w, r, http.StatusUnprocessableEntity, flow, current, views.ScreenView{
			Email:      email,
			EmailError: funnel.EmailMessage(err),
		})
	default:
		http.Error(w, "Invalid step", http.StatusBadRequest)
	}
}

// SelectAmount records the chosen trial tier; the step does not change.
func (h *FunnelHandler) SelectAmount(w http.ResponseWriter, r *http.Request) {
	flow, session, ok := h.flowSession(w, r)
	if !ok {
		return
	}

	amount, err := strconv.Atoi(r.PostFormValue("amount"))
	if err != nil {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	state, err := loadState(session, flow).SelectAmount(flow, amount)
	if err != nil {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	h.saveAndRedirect(w, r, session, flow, state)
}

// Checkout starts the provider checkout for the stored selection and
// redirects the browser to the hosted page. A second submission while one is
// running gets 409 without touching the provider.
func (h *FunnelHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	flow, session, ok := h.flowSession(w, r)
	if !ok {
		return
	}

	state := loadState(session, flow)
	amount, email, ok := state.TrialSelection()
	if !ok {
		http.Redirect(w, r, views.PagePath(flow.Name()), http.StatusSeeOther)
		return
	}

	visitor := visitorID(session)
	if _, running := h.inFlight.LoadOrStore(visitor, struct{}{}); running {
		h.render(w, r, http.StatusConflict, flow, state, views.ScreenView{CheckoutError: msgCheckoutInFlight})
		return
	}
	defer h.inFlight.Delete(visitor)

	checkout, err := h.checkout.CreateTrialCheckout(r.Context(), payment.TrialRequest{
		Amount:    amount,
		Email:     email,
		Origin:    resolveOrigin(r, h.publicDomain),
		RequestID: requestID(r),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, payment.ErrInvalidAmount) {
			status = http.StatusBadRequest
		}
		h.log.Error("Funnel checkout failed", zap.String("visitor", visitor), zap.Error(err))
		h.render(w, r, status, flow, state, views.ScreenView{CheckoutError: msgCheckoutRetry})
		return
	}

	if checkout.URL == "" {
		h.log.Error("Checkout session has no URL", zap.String("session_id", checkout.ID))
		h.render(w, r, http.StatusInternalServerError, flow, state, views.ScreenView{CheckoutError: msgCheckoutRetry})
		return
	}

	http.Redirect(w, r, checkout.URL, http.StatusSeeOther)
}

// Success is the provider's return page.
func (h *FunnelHandler) Success(w http.ResponseWriter, r *http.Request) {
	page := views.Layout("pt-BR", pageTitles[funnel.LandingFlow], views.Success(r.URL.Query().Get("session_id")))
	h.writePage(w, r, http.StatusOK, page)
}

func (h *FunnelHandler) flowSession(w http.ResponseWriter, r *http.Request) (*funnel.Flow, *sessions.Session, bool) {
	flow, ok := h.flows[mux.Vars(r)["flow"]]
	if !ok {
		http.NotFound(w, r)
		return nil, nil, false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return nil, nil, false
	}
	return flow, h.session(r), true
}

// session never fails: a cookie that does not verify is replaced by a fresh session.
func (h *FunnelHandler) session(r *http.Request) *sessions.Session {
	session, err := h.store.Get(r, sessionName)
	if err != nil {
		h.log.Info("Discarding unreadable funnel session", zap.Error(err))
	}
	return session
}

func (h *FunnelHandler) saveAndRedirect(w http.ResponseWriter, r *http.Request, session *sessions.Session, flow *funnel.Flow, state funnel.State) {
	saveState(session, flow, state)
	visitorID(session)
	if err := session.Save(r, w); err != nil {
		h.log.Error("Error saving funnel session", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, views.PagePath(flow.Name()), http.StatusSeeOther)
}

func (h *FunnelHandler) render(w http.ResponseWriter, r *http.Request, status int, flow *funnel.Flow, state funnel.State, view views.ScreenView) {
	view.Flow = flow.Name()
	if view.Email == "" {
		view.Email = state.Email
	}
	view.SelectedAmount = state.Amount

	var body templ.Component = views.Empty()
	if screen, ok := flow.Screen(state.Step); ok {
		body = views.Screen(screen, view)
	}
	h.writePage(w, r, status, views.Layout(flow.Locale(), pageTitles[flow.Name()], body))
}

func (h *FunnelHandler) writePage(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(r.Context(), w); err != nil {
		h.log.Error("Error rendering page", zap.Error(err))
	}
}

func stepKey(flow string) string   { return flow + ".step" }
func emailKey(flow string) string  { return flow + ".email" }
func amountKey(flow string) string { return flow + ".amount" }

func loadState(session *sessions.Session, flow *funnel.Flow) funnel.State {
	state := funnel.NewState(flow)
	if step, ok := session.Values[stepKey(flow.Name())].(int); ok {
		state.Step = funnel.Step(step)
	}
	if email, ok := session.Values[emailKey(flow.Name())].(string); ok {
		state.Email = email
	}
	if amount, ok := session.Values[amountKey(flow.Name())].(int); ok {
		state.Amount = amount
	}
	return state
}

func saveState(session *sessions.Session, flow *funnel.Flow, state funnel.State) {
	session.Values[stepKey(flow.Name())] = int(state.Step)
	session.Values[emailKey(flow.Name())] = state.Email
	session.Values[amountKey(flow.Name())] = state.Amount
}

func visitorID(session *sessions.Session) string {
	if id, ok := session.Values[visitorKey].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	session.Values[visitorKey] = id
	return id
}
