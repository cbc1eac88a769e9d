package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trial-funnel/models"
)

const createOrphansTable = `
CREATE TABLE IF NOT EXISTS checkout_orphans (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	report_id CHAR(36) NOT NULL,
	request_id VARCHAR(64) NOT NULL,
	email VARCHAR(320) NOT NULL DEFAULT '',
	trial_amount INT NOT NULL,
	failed_step VARCHAR(32) NOT NULL,
	error_message TEXT NOT NULL,
	product_id VARCHAR(255) NOT NULL DEFAULT '',
	price_id VARCHAR(255) NOT NULL DEFAULT '',
	customer_id VARCHAR(255) NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	UNIQUE KEY uq_checkout_orphans_report (report_id),
	KEY idx_checkout_orphans_request (request_id)
)`

const insertOrphan = `
		INSERT INTO checkout_orphans (
			report_id, request_id, email, trial_amount, failed_step, error_message,
			product_id, price_id, customer_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE report_id = report_id
	`

// EnsureSchema creates the orphan ledger table when missing.
func (c *Connection) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, createOrphansTable); err != nil {
		return fmt.Errorf("failed to create checkout_orphans: %w", err)
	}
	return nil
}

// RecordOrphanReport stores a report. Replays of the same report id are
// ignored so queue retries stay idempotent; reports that only share a
// request id are all kept.
func (c *Connection) RecordOrphanReport(ctx context.Context, report models.OrphanReport) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.db.ExecContext(ctx, insertOrphan, orphanInsertArgs(report)...)
	if err != nil {
		return fmt.Errorf("failed to record orphan report: %w", err)
	}

	c.log.Info("Recorded orphan report",
		zap.String("report_id", report.ReportID),
		zap.String("request_id", report.RequestID),
		zap.String("failed_step", report.FailedStep),
	)
	return nil
}

// orphanInsertArgs fills a missing report id or timestamp so a report is
// never folded into another one.
func orphanInsertArgs(report models.OrphanReport) []interface{} {
	if report.ReportID == "" {
		report.ReportID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	return []interface{}{
		report.ReportID, report.RequestID, report.Email, report.TrialAmount, report.FailedStep, report.Error,
		report.ProductID, report.PriceID, report.CustomerID, report.CreatedAt,
	}
}

// ListOrphanReports returns the newest reports first.
func (c *Connection) ListOrphanReports(ctx context.Context, limit int) ([]models.OrphanReport, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, report_id, request_id, email, trial_amount, failed_step, error_message,
			product_id, price_id, customer_id, created_at
		FROM checkout_orphans
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan reports: %w", err)
	}
	defer rows.Close()

	reports := []models.OrphanReport{}
	for rows.Next() {
		report, err := scanOrphan(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanOrphan(rows *sql.Rows) (models.OrphanReport, error) {
	var r models.OrphanReport
	err := rows.Scan(
		&r.ID,
		&r.ReportID,
		&r.RequestID,
		&r.Email,
		&r.TrialAmount,
		&r.FailedStep,
		&r.Error,
		&r.ProductID,
		&r.PriceID,
		&r.CustomerID,
		&r.CreatedAt,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan orphan report: %w", err)
	}
	return r, nil
}
