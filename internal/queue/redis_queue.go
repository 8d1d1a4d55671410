package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultRetryCount is the retry budget of a job enqueued without WithMaxRetries
	DefaultRetryCount = 3
	// DefaultTTL is how long job details are kept after the last update
	DefaultTTL = 24 * time.Hour

	jobPrefix     = "jobs:"
	delayedPrefix = "delayed:"
	failedPrefix  = "failed:"
)

// RedisQueue stores jobs in redis lists. Delayed jobs sit in a sorted set
// scored by run time until a worker moves them onto the list.
type RedisQueue struct {
	client *redis.Client
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewRedisQueue creates a new Redis queue
func NewRedisQueue(client *redis.Client, log logrus.FieldLogger) *RedisQueue {
	return &RedisQueue{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

func (q *RedisQueue) newJob(queueName string, payload interface{}, runAt time.Time, opts []EnqueueOption) (*Job, []byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := q.now()
	job := &Job{
		ID:         uuid.New().String(),
		Queue:      queueName,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		MaxRetries: DefaultRetryCount,
		CreatedAt:  now,
		UpdatedAt:  now,
		RunAt:      runAt,
	}
	for _, opt := range opts {
		opt(job)
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return job, jobBytes, nil
}

// Enqueue adds a job to the queue
func (q *RedisQueue) Enqueue(ctx context.Context, queueName string, payload interface{}, opts ...EnqueueOption) (string, error) {
	job, jobBytes, err := q.newJob(queueName, payload, q.now(), opts)
	if err != nil {
		return "", err
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, queueName, jobBytes)
		pipe.HSet(ctx, jobPrefix+job.ID, "data", jobBytes)
		pipe.Expire(ctx, jobPrefix+job.ID, DefaultTTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to push job to queue: %w", err)
	}

	return job.ID, nil
}

// EnqueueIn adds a job to the queue with a delay
func (q *RedisQueue) EnqueueIn(ctx context.Context, queueName string, payload interface{}, delay time.Duration, opts ...EnqueueOption) (string, error) {
	job, jobBytes, err := q.newJob(queueName, payload, q.now().Add(delay), opts)
	if err != nil {
		return "", err
	}

	if err := q.delay(ctx, job, jobBytes); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *RedisQueue) delay(ctx context.Context, job *Job, jobBytes []byte) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, delayedPrefix+job.Queue, &redis.Z{
			Score:  float64(job.RunAt.Unix()),
			Member: jobBytes,
		})
		pipe.HSet(ctx, jobPrefix+job.ID, "data", jobBytes)
		pipe.Expire(ctx, jobPrefix+job.ID, DefaultTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add job to delayed queue: %w", err)
	}
	return nil
}

// Dequeue waits up to timeout for a job. It returns nil, nil when none arrived.
func (q *RedisQueue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	q.moveReadyDelayedJobs(ctx, queueName)

	result, err := q.client.BRPop(ctx, timeout, queueName).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop job from queue: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected result format from BRPOP")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	job.Status = JobStatusProcessing
	job.UpdatedAt = q.now()
	if err := q.save(ctx, &job); err != nil {
		q.log.WithError(err).WithField("job_id", job.ID).Warn("failed to update job status")
	}

	return &job, nil
}

// moveReadyDelayedJobs moves delayed jobs that are ready to run to the main queue.
// Only the worker whose ZREM succeeds pushes a job, so concurrent workers
// never duplicate one.
func (q *RedisQueue) moveReadyDelayedJobs(ctx context.Context, queueName string) {
	jobs, err := q.client.ZRangeByScore(ctx, delayedPrefix+queueName, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(q.now().Unix(), 10),
	}).Result()
	if err != nil {
		q.log.WithError(err).WithField("queue", queueName).Warn("failed to read delayed jobs")
		return
	}

	for _, jobStr := range jobs {
		removed, err := q.client.ZRem(ctx, delayedPrefix+queueName, jobStr).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, queueName, jobStr).Err(); err != nil {
			q.log.WithError(err).WithField("queue", queueName).Error("failed to move delayed job to main queue")
		}
	}
}

// Complete marks a job as completed
func (q *RedisQueue) Complete(ctx context.Context, job *Job) error {
	job.Status = JobStatusCompleted
	job.Error = ""
	job.UpdatedAt = q.now()
	return q.save(ctx, job)
}

// Fail records jobErr and schedules a retry with backoff while the job has
// retries left. Exhausted jobs are parked on the queue's failed list.
func (q *RedisQueue) Fail(ctx context.Context, job *Job, jobErr error) error {
	now := q.now()
	job.Error = jobErr.Error()
	job.UpdatedAt = now

	if job.RetryCount < job.MaxRetries {
		job.Status = JobStatusPending
		job.RetryCount++
		job.RunAt = now.Add(calculateBackoff(job.RetryCount))

		jobBytes, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		return q.delay(ctx, job, jobBytes)
	}

	job.Status = JobStatusFailed
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, failedPrefix+job.Queue, jobBytes)
		pipe.HSet(ctx, jobPrefix+job.ID, "data", jobBytes)
		pipe.Expire(ctx, jobPrefix+job.ID, DefaultTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record failed job: %w", err)
	}
	return nil
}

// Get returns the stored details of a job
func (q *RedisQueue) Get(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.HGet(ctx, jobPrefix+jobID, "data").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get job details: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Stats returns the backlog of a queue
func (q *RedisQueue) Stats(ctx context.Context, queueName string) (*QueueStats, error) {
	pipe := q.client.Pipeline()
	waiting := pipe.LLen(ctx, queueName)
	delayed := pipe.ZCard(ctx, delayedPrefix+queueName)
	failed := pipe.LLen(ctx, failedPrefix+queueName)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}

	return &QueueStats{
		Queue:   queueName,
		Waiting: waiting.Val(),
		Delayed: delayed.Val(),
		Failed:  failed.Val(),
	}, nil
}

func (q *RedisQueue) save(ctx context.Context, job *Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.HSet(ctx, jobPrefix+job.ID, "data", jobBytes).Err(); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}
