package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trial-funnel/models"
	"trial-funnel/queue"
)

// JobSource is satisfied by *queue.Queue.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	CompleteJob(ctx context.Context, job *queue.Job) error
	FailJob(ctx context.Context, job *queue.Job, jobErr error) error
	ProcessDelayedJobs(ctx context.Context) error
}

// OrphanStore is satisfied by *database.Connection.
type OrphanStore interface {
	RecordOrphanReport(ctx context.Context, report models.OrphanReport) error
}

// Alerter is satisfied by *email.SMTPService.
type Alerter interface {
	SendOrphanAlert(to string, report models.OrphanReport) error
}

type Options struct {
	// Store and Alerter are optional; a nil value skips that step.
	Store         OrphanStore
	Alerter       Alerter
	OperatorEmail string
	// DelayedInterval is how often due retries are promoted. Defaults to 5s.
	DelayedInterval time.Duration
}

// Worker drains orphan reports from the queue into the ledger and the
// operator's inbox.
type Worker struct {
	source    JobSource
	opts      Options
	log       *zap.Logger
	shutdown  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

func NewWorker(source JobSource, opts Options, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DelayedInterval <= 0 {
		opts.DelayedInterval = 5 * time.Second
	}
	return &Worker{
		source:   source,
		opts:     opts,
		log:      log,
		shutdown: make(chan struct{}),
	}
}

func (w *Worker) Start(concurrency int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return
	}
	w.isRunning = true

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(i)
	}

	w.wg.Add(1)
	go w.promoteDelayed()

	w.log.Info("Started worker goroutines", zap.Int("concurrency", concurrency))
}

// Stop signals every goroutine and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	close(w.shutdown)
	w.mu.Unlock()

	w.log.Info("Stopping worker")
	w.wg.Wait()
}

func (w *Worker) processJobs(workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker", workerID))
	log.Debug("Worker starting")

	for {
		select {
		case <-w.shutdown:
			log.Debug("Worker shutting down")
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		job, err := w.source.Dequeue(ctx, 2*time.Second)
		cancel()

		if err != nil {
			log.Warn("Error dequeuing job", zap.Error(err))
			w.sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		log.Info("Processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))

		if jobErr := w.processJob(job); jobErr != nil {
			log.Warn("Job failed", zap.String("job_id", job.ID), zap.Error(jobErr))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := w.source.FailJob(ctx, job, jobErr); err != nil {
				log.Error("Error marking job as failed", zap.String("job_id", job.ID), zap.Error(err))
			}
			cancel()
			continue
		}

		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.source.CompleteJob(ctx, job); err != nil {
			log.Warn("Error marking job as complete", zap.String("job_id", job.ID), zap.Error(err))
		}
		cancel()
	}
}

func (w *Worker) promoteDelayed() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.DelayedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := w.source.ProcessDelayedJobs(ctx); err != nil {
				w.log.Warn("Error promoting delayed jobs", zap.Error(err))
			}
			cancel()
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.shutdown:
	case <-time.After(d):
	}
}

func (w *Worker) processJob(job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeReportOrphans:
		return w.processOrphanReport(job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *Worker) processOrphanReport(job *queue.Job) error {
	var report models.OrphanReport
	if err := job.Decode(&report); err != nil {
		return err
	}
	// Jobs enqueued before reports carried their own id reuse the job id,
	// which stays the same across retries.
	if report.ReportID == "" {
		report.ReportID = job.ID
	}

	fields := []zap.Field{
		zap.String("report_id", report.ReportID),
		zap.String("request_id", report.RequestID),
		zap.String("failed_step", report.FailedStep),
		zap.Strings("objects", report.ObjectIDs()),
	}

	if w.opts.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := w.opts.Store.RecordOrphanReport(ctx, report)
		cancel()
		if err != nil {
			if queue.IsLastAttempt(job) {
				w.log.Error("Giving up on orphan report; record it by hand",
					append(fields, zap.String("email", report.Email), zap.String("error", report.Error))...)
			}
			return fmt.Errorf("record orphan report: %w", err)
		}
	}

	if w.opts.Alerter != nil && w.opts.OperatorEmail != "" {
		if err := w.opts.Alerter.SendOrphanAlert(w.opts.OperatorEmail, report); err != nil {
			return fmt.Errorf("send orphan alert: %w", err)
		}
	}

	w.log.Info("Handled orphan report", fields...)
	return nil
}
