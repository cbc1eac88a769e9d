package email

import (
	"strings"
	"testing"

	"trial-funnel/models"
)

func TestRenderOrphanAlert(t *testing.T) {
	subject, body, err := RenderOrphanAlert(models.OrphanReport{
		ReportID:    "rep-9",
		RequestID:   "req-9",
		Email:       "ana@example.com",
		TrialAmount: 10,
		FailedStep:  "create_customer",
		Error:       "card_declined <boom>",
		ProductID:   "prod_1",
		PriceID:     "price_1",
	})
	if err != nil {
		t.Fatalf("RenderOrphanAlert: %v", err)
	}

	if subject != "[trial-funnel] 2 orphaned objects after create_customer" {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{"rep-9", "req-9", "ana@example.com", "prod_1", "price_1", "R$", "card_declined &lt;boom&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("from@x.io", "ops@x.io", "hello", "<p>hi</p>")
	if !strings.HasPrefix(msg, "From: Trial Funnel <from@x.io>\r\nTo: ops@x.io\r\nSubject: hello\r\n") {
		t.Errorf("headers = %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>") {
		t.Errorf("body = %q", msg)
	}
}
