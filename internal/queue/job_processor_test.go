package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilregistry/backend/internal/logging"
	"github.com/civilregistry/backend/internal/metrics"
)

// memoryBackend is a Backend over in-process slices
type memoryBackend struct {
	mu        sync.Mutex
	queues    map[string][]*Job
	completed []string
	failed    []string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{queues: make(map[string][]*Job)}
}

func (b *memoryBackend) push(job *Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[job.Queue] = append(b.queues[job.Queue], job)
}

func (b *memoryBackend) Dequeue(ctx context.Context, queueName string, _ time.Duration) (*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	jobs := b.queues[queueName]
	if len(jobs) == 0 {
		return nil, ctx.Err()
	}
	b.queues[queueName] = jobs[1:]
	return jobs[0], nil
}

func (b *memoryBackend) Complete(_ context.Context, job *Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = append(b.completed, job.ID)
	return nil
}

func (b *memoryBackend) Fail(_ context.Context, job *Job, jobErr error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	job.Error = jobErr.Error()
	b.failed = append(b.failed, job.ID)
	return nil
}

func (b *memoryBackend) snapshot() (completed, failed []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.completed...), append([]string(nil), b.failed...)
}

func TestProcessJob_Outcomes(t *testing.T) {
	backend := newMemoryBackend()
	m := metrics.New()
	p := NewJobProcessor(backend, 1, m, logging.Discard())

	p.RegisterHandler("ok", func(ctx context.Context, job Job) error {
		var payload struct {
			Name string `json:"name"`
		}
		require.NoError(t, job.Decode(&payload))
		assert.Equal(t, "mirror", payload.Name)
		return nil
	})
	p.RegisterHandler("broken", func(ctx context.Context, job Job) error {
		return errors.New("boom")
	})

	require.NoError(t, p.ProcessJob(&Job{ID: "1", Queue: "ok", Payload: []byte(`{"name":"mirror"}`)}))

	err := p.ProcessJob(&Job{ID: "2", Queue: "broken", Payload: []byte(`{}`)})
	assert.ErrorContains(t, err, "boom")

	err = p.ProcessJob(&Job{ID: "3", Queue: "unknown", Payload: []byte(`{}`), RetryCount: 0, MaxRetries: 3})
	assert.ErrorContains(t, err, "no handler registered")

	completed, failed := backend.snapshot()
	assert.Equal(t, []string{"1"}, completed)
	assert.Equal(t, []string{"2", "3"}, failed)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueJobsProcessed.WithLabelValues("ok", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueJobsProcessed.WithLabelValues("broken", "failure")))
}

func TestJobProcessor_StartStop(t *testing.T) {
	backend := newMemoryBackend()
	p := NewJobProcessor(backend, 2, metrics.New(), logging.Discard())

	done := make(chan string, 3)
	p.RegisterHandler("reconcile", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	})

	for _, id := range []string{"a", "b", "c"} {
		backend.push(&Job{ID: id, Queue: "reconcile", Payload: []byte(`{}`)})
	}

	p.Start()
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	p.Stop()

	assert.Len(t, seen, 3)
	completed, _ := backend.snapshot()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, completed)
}

func TestCalculateBackoff(t *testing.T) {
	for retry := 1; retry < 20; retry++ {
		d := calculateBackoff(retry)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Duration(1.2*float64(time.Hour)))
	}
}
