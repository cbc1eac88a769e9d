package queue

import (
	"context"

	"trial-funnel/models"
)

// OrphanReporter hands orphan reports to the worker through the queue.
type OrphanReporter struct {
	Queue *Queue
}

func (r OrphanReporter) ReportOrphans(ctx context.Context, report models.OrphanReport) error {
	_, err := r.Queue.Enqueue(ctx, JobTypeReportOrphans, report)
	return err
}
