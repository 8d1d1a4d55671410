package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/metrics"
)

// Backend is the job store a JobProcessor polls. RedisQueue implements it.
type Backend interface {
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error)
	Complete(ctx context.Context, job *Job) error
	Fail(ctx context.Context, job *Job, jobErr error) error
}

// Handler processes one job
type Handler func(ctx context.Context, job Job) error

// JobProcessor processes jobs from queues
type JobProcessor struct {
	backend        Backend
	handlers       map[string]Handler
	workerCount    int
	pollTimeout    time.Duration
	wg             sync.WaitGroup
	processingJobs sync.Map
	ctx            context.Context
	cancel         context.CancelFunc
	metrics        *metrics.Metrics
	log            logrus.FieldLogger
}

// NewJobProcessor creates a new JobProcessor
func NewJobProcessor(backend Backend, workerCount int, m *metrics.Metrics, log logrus.FieldLogger) *JobProcessor {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobProcessor{
		backend:     backend,
		handlers:    make(map[string]Handler),
		workerCount: workerCount,
		pollTimeout: time.Second,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     m,
		log:         log,
	}
}

// RegisterHandler registers a handler for a specific queue. Handlers must be
// registered before Start.
func (p *JobProcessor) RegisterHandler(queueName string, handler Handler) {
	p.handlers[queueName] = handler
}

// Start starts the job processor
func (p *JobProcessor) Start() {
	queues := make([]string, 0, len(p.handlers))
	for name := range p.handlers {
		queues = append(queues, name)
	}
	sort.Strings(queues)

	if len(queues) == 0 {
		p.log.Warn("job processor not started: no queues registered")
		return
	}

	p.log.WithFields(logrus.Fields{
		"workers": p.workerCount,
		"queues":  queues,
	}).Info("starting job processor")

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, queues)
	}
}

// Stop cancels in-flight polls and waits for workers to finish their current job
func (p *JobProcessor) Stop() {
	p.log.Info("stopping job processor")
	p.cancel()
	p.wg.Wait()
	p.log.Info("job processor stopped")
}

func (p *JobProcessor) worker(id int, queues []string) {
	defer p.wg.Done()

	entry := p.log.WithField("worker", id)
	for {
		for _, queueName := range queues {
			if p.ctx.Err() != nil {
				return
			}

			job, err := p.backend.Dequeue(p.ctx, queueName, p.pollTimeout)
			if err != nil {
				if p.ctx.Err() != nil {
					return
				}
				entry.WithError(err).WithField("queue", queueName).Error("failed to get job from queue")
				p.pause(time.Second)
				continue
			}
			if job == nil {
				continue
			}

			if err := p.ProcessJob(job); err != nil {
				entry.WithError(err).WithField("job_id", job.ID).Warn("job failed")
			}
		}
	}
}

func (p *JobProcessor) pause(d time.Duration) {
	select {
	case <-p.ctx.Done():
	case <-time.After(d):
	}
}

// ProcessJob runs the handler registered for the job's queue and records the outcome
func (p *JobProcessor) ProcessJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}

	// outcomes are recorded even while shutting down
	recordCtx := context.WithoutCancel(p.ctx)

	handler, ok := p.handlers[job.Queue]
	if !ok {
		err := fmt.Errorf("no handler registered for job type: %s", job.Queue)
		job.MaxRetries = job.RetryCount
		if failErr := p.backend.Fail(recordCtx, job, err); failErr != nil {
			p.log.WithError(failErr).WithField("job_id", job.ID).Error("failed to record job failure")
		}
		p.metrics.ObserveJob(job.Queue, false)
		return err
	}

	p.processingJobs.Store(job.ID, true)
	err := handler(p.ctx, *job)
	p.processingJobs.Delete(job.ID)

	if err != nil {
		if failErr := p.backend.Fail(recordCtx, job, err); failErr != nil {
			p.log.WithError(failErr).WithField("job_id", job.ID).Error("failed to record job failure")
		}
		p.metrics.ObserveJob(job.Queue, false)
		return fmt.Errorf("job processing failed: %w", err)
	}

	if err := p.backend.Complete(recordCtx, job); err != nil {
		p.log.WithError(err).WithField("job_id", job.ID).Warn("failed to mark job completed")
	}
	p.metrics.ObserveJob(job.Queue, true)
	return nil
}

// IsProcessing checks if a job is currently being processed
func (p *JobProcessor) IsProcessing(jobID string) bool {
	_, ok := p.processingJobs.Load(jobID)
	return ok
}
