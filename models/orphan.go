package models

import "time"

// OrphanReport records provider objects left behind when a trial checkout
// fails part way. Nothing is rolled back; the report exists so an operator
// can clean up by hand. ReportID is minted per failed checkout and keys the
// ledger; RequestID comes from the caller and may repeat.
type OrphanReport struct {
	ID          int64     `json:"id,omitempty"`
	ReportID    string    `json:"report_id"`
	RequestID   string    `json:"request_id"`
	Email       string    `json:"email"`
	TrialAmount int       `json:"trial_amount"`
	FailedStep  string    `json:"failed_step"`
	Error       string    `json:"error"`
	ProductID   string    `json:"product_id,omitempty"`
	PriceID     string    `json:"price_id,omitempty"`
	CustomerID  string    `json:"customer_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ObjectIDs lists the provider ids that were created, in creation order.
func (r OrphanReport) ObjectIDs() []string {
	var ids []string
	for _, id := range []string{r.ProductID, r.PriceID, r.CustomerID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
