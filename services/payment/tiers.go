package payment

import (
	"sort"

	"trial-funnel/utils"
)

// TrialTier is an initial payment charged before the recurring subscription starts.
type TrialTier struct {
	Amount     int
	UnitAmount int64
	Currency   string
}

func (t TrialTier) Label() string {
	return utils.FormatMinorUnits(t.UnitAmount, t.Currency)
}

var trialTiers = map[int]TrialTier{
	5:  {Amount: 5, UnitAmount: 500, Currency: "brl"},
	10: {Amount: 10, UnitAmount: 1000, Currency: "brl"},
	30: {Amount: 30, UnitAmount: 3000, Currency: "brl"},
}

func LookupTier(amount int) (TrialTier, bool) {
	t, ok := trialTiers[amount]
	return t, ok
}

// Tiers returns every configured tier ordered by amount.
func Tiers() []TrialTier {
	out := make([]TrialTier, 0, len(trialTiers))
	for _, t := range trialTiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out
}

func TierAmounts() []int {
	tiers := Tiers()
	out := make([]int, len(tiers))
	for i, t := range tiers {
		out[i] = t.Amount
	}
	return out
}
