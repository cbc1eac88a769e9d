package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JobType string

const (
	JobTypeReportOrphans JobType = "report_orphans"
)

const MaxRetries = 5

type Job struct {
	ID            string          `json:"id"`
	Type          JobType         `json:"type"`
	Data          json.RawMessage `json:"data"`
	CreatedAt     time.Time       `json:"created_at"`
	RetryCount    int             `json:"retry_count"`
	LastError     string          `json:"last_error,omitempty"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	LastAttempt   bool            `json:"is_last_attempt,omitempty"`
	Exhausted     bool            `json:"all_retries_exhausted,omitempty"`
	FinalFailedAt *time.Time      `json:"final_failure_at,omitempty"`

	// raw is the exact payload popped from Redis, used to remove the job
	// from the processing list after its fields have changed.
	raw string
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v interface{}) error {
	if err := json.Unmarshal(j.Data, v); err != nil {
		return fmt.Errorf("failed to decode job %s data: %w", j.ID, err)
	}
	return nil
}

func NewJob(jobType JobType, data interface{}) (*Job, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job data: %w", err)
	}
	return &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Data:      payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}

type Queue struct {
	client     *redis.Client
	queueName  string
	processing string
	failed     string
	delayed    string
	log        *zap.Logger
}

func NewQueue(redisURL, queueName string, log *zap.Logger) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newQueue(client, queueName, log), nil
}

func newQueue(client *redis.Client, queueName string, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		client:     client,
		queueName:  queueName,
		processing: queueName + ":processing",
		failed:     queueName + ":failed",
		delayed:    queueName + ":delayed",
		log:        log.With(zap.String("queue", queueName)),
	}
}

func (q *Queue) Enqueue(ctx context.Context, jobType JobType, data interface{}) (*Job, error) {
	job, err := NewJob(jobType, data)
	if err != nil {
		return nil, err
	}

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.RPush(ctx, q.queueName, jobJSON).Err(); err != nil {
		return nil, fmt.Errorf("failed to push job to queue: %w", err)
	}

	q.log.Info("Enqueued job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return job, nil
}

// Dequeue blocks up to timeout. A nil job with a nil error means the queue was empty.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected BLPOP result format")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	job.raw = result[1]

	if err := q.client.RPush(ctx, q.processing, result[1]).Err(); err != nil {
		q.log.Warn("Failed to move job to processing list", zap.String("job_id", job.ID), zap.Error(err))
	}

	return &job, nil
}

func (q *Queue) CompleteJob(ctx context.Context, job *Job) error {
	if err := q.client.LRem(ctx, q.processing, 1, job.raw).Err(); err != nil {
		return fmt.Errorf("failed to remove job from processing list: %w", err)
	}

	q.log.Info("Completed job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return nil
}

// FailJob schedules a retry with exponential backoff, or moves the job to
// the failed list once MaxRetries is exceeded.
func (q *Queue) FailJob(ctx context.Context, job *Job, jobErr error) error {
	if err := q.client.LRem(ctx, q.processing, 1, job.raw).Err(); err != nil {
		q.log.Warn("Failed to remove job from processing list", zap.String("job_id", job.ID), zap.Error(err))
	}

	job.RetryCount++
	job.LastError = jobErr.Error()

	if job.RetryCount <= MaxRetries {
		delay := RetryDelay(job.RetryCount)
		retryAt := time.Now().Add(delay)
		job.NextRetryAt = &retryAt
		job.LastAttempt = job.RetryCount == MaxRetries

		jobJSON, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		if err := q.client.ZAdd(ctx, q.delayed, &redis.Z{
			Score:  float64(retryAt.Unix()),
			Member: jobJSON,
		}).Err(); err != nil {
			q.log.Warn("Failed to schedule retry, moving job to failed list", zap.String("job_id", job.ID), zap.Error(err))
			if err := q.client.RPush(ctx, q.failed, jobJSON).Err(); err != nil {
				return fmt.Errorf("failed to push job to failed list: %w", err)
			}
			return nil
		}

		q.log.Info("Scheduled job retry",
			zap.String("job_id", job.ID),
			zap.Int("attempt", job.RetryCount),
			zap.Duration("delay", delay),
			zap.Bool("last_attempt", job.LastAttempt),
		)
		return nil
	}

	now := time.Now()
	job.Exhausted = true
	job.FinalFailedAt = &now
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.RPush(ctx, q.failed, jobJSON).Err(); err != nil {
		return fmt.Errorf("failed to push job to failed list: %w", err)
	}

	q.log.Error("Job moved to failed list", zap.String("job_id", job.ID), zap.Int("retries", job.RetryCount))
	return nil
}

// ProcessDelayedJobs moves due retries back onto the main list.
func (q *Queue) ProcessDelayedJobs(ctx context.Context) error {
	jobs, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", time.Now().Unix()),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get delayed jobs: %w", err)
	}

	for _, jobJSON := range jobs {
		removed, err := q.client.ZRem(ctx, q.delayed, jobJSON).Result()
		if err != nil {
			q.log.Warn("Failed to remove job from delayed set", zap.Error(err))
			continue
		}
		// Another worker already promoted it.
		if removed == 0 {
			continue
		}
		if err := q.client.RPush(ctx, q.queueName, jobJSON).Err(); err != nil {
			q.log.Warn("Failed to move delayed job to main list", zap.Error(err))
		}
	}
	return nil
}

// IsLastAttempt reports whether a failure of job will exhaust its retries.
func IsLastAttempt(job *Job) bool {
	return job.LastAttempt || job.RetryCount >= MaxRetries
}

// RetryDelay is 15s doubled per attempt: 15s, 30s, 1m, 2m, 4m.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(15*(1<<(attempt-1))) * time.Second
}

func (q *Queue) Client() *redis.Client {
	return q.client
}

func (q *Queue) Close() error {
	return q.client.Close()
}
