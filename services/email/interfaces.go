package email

import "trial-funnel/models"

type EmailSender interface {
	SendEmail(to, subject, body string) error
	SendOrphanAlert(to string, report models.OrphanReport) error
}
