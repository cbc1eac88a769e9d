package funnel

import (
	"errors"
	"fmt"
)

var (
	ErrNotEmailScreen   = errors.New("current screen does not collect an email")
	ErrNotPricingScreen = errors.New("current screen does not offer trial amounts")
	ErrAmountNotOffered = errors.New("amount is not offered")
)

// State is the transient per-visitor funnel position. Email and Amount form
// the trial selection consumed by checkout.
type State struct {
	Step   Step
	Email  string
	Amount int
}

func NewState(f *Flow) State {
	return State{Step: f.Entry()}
}

func (s State) Advance(f *Flow, choice Choice) (State, error) {
	next, err := f.Next(s.Step, choice)
	if err != nil {
		return s, err
	}
	s.Step = next
	return s, nil
}

// SubmitEmail validates email and follows the submit-email edge. Invalid
// input leaves the state untouched.
func (s State) SubmitEmail(f *Flow, email string) (State, error) {
	screen, ok := f.Screen(s.Step)
	if !ok || screen.Kind != KindEmail {
		return s, ErrNotEmailScreen
	}
	if err := ValidateEmail(email); err != nil {
		return s, err
	}
	next, err := f.Next(s.Step, ChoiceSubmitEmail)
	if err != nil {
		return s, err
	}
	s.Email = email
	s.Step = next
	return s, nil
}

func (s State) SelectAmount(f *Flow, amount int) (State, error) {
	screen, ok := f.Screen(s.Step)
	if !ok || screen.Kind != KindPricing {
		return s, ErrNotPricingScreen
	}
	for _, a := range screen.Amounts {
		if a == amount {
			s.Amount = amount
			return s, nil
		}
	}
	return s, fmt.Errorf("%w: %d", ErrAmountNotOffered, amount)
}

// TrialSelection reports the amount and email once both are set.
func (s State) TrialSelection() (int, string, bool) {
	if s.Amount == 0 || s.Email == "" {
		return 0, "", false
	}
	return s.Amount, s.Email, true
}
