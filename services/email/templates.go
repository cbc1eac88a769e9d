package email

import (
	"bytes"
	"fmt"
	"html/template"

	"trial-funnel/models"
	"trial-funnel/utils"
)

var orphanAlertTemplate = template.Must(template.New("orphan_alert").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Orphaned checkout objects</title></head>
<body style="font-family: Arial, sans-serif; color: #25364D;">
    <h2>Trial checkout failed at {{.FailedStep}}</h2>
    <p>The objects below were created before the failure and were not removed.</p>
    <table cellpadding="4" style="border-collapse: collapse;">
        <tr><td><strong>Report</strong></td><td>{{.ReportID}}</td></tr>
        <tr><td><strong>Request</strong></td><td>{{.RequestID}}</td></tr>
        <tr><td><strong>Email</strong></td><td>{{.Email}}</td></tr>
        <tr><td><strong>Trial</strong></td><td>{{.Amount}}</td></tr>
        <tr><td><strong>Error</strong></td><td>{{.Error}}</td></tr>
        {{range .Objects}}<tr><td><strong>Object</strong></td><td><code>{{.}}</code></td></tr>
        {{end}}
    </table>
</body>
</html>`))

// RenderOrphanAlert builds the operator notification for a partial checkout.
func RenderOrphanAlert(report models.OrphanReport) (subject, body string, err error) {
	data := struct {
		models.OrphanReport
		Amount  string
		Objects []string
	}{
		OrphanReport: report,
		Amount:       utils.FormatMinorUnits(int64(report.TrialAmount)*100, "brl"),
		Objects:      report.ObjectIDs(),
	}

	var buf bytes.Buffer
	if err := orphanAlertTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render orphan alert: %w", err)
	}

	subject = fmt.Sprintf("[trial-funnel] %d orphaned objects after %s", len(data.Objects), report.FailedStep)
	return subject, buf.String(), nil
}
