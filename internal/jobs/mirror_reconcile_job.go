package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/queue"
)

const (
	// MirrorReconcileJobType is the queue that rebuilds one application's documents mirror
	MirrorReconcileJobType = "reconcile_document_mirror"
)

// MirrorReconcileJobPayload represents the payload for a mirror reconcile job
type MirrorReconcileJobPayload struct {
	ApplicationID uuid.UUID `json:"applicationId"`
}

// MirrorReconciler rebuilds documents mirrors from the documents table
type MirrorReconciler interface {
	ReconcileMirror(ctx context.Context, applicationID uuid.UUID) error
	ReconcileAll(ctx context.Context) (int, error)
}

// Enqueuer adds jobs to a queue
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName string, payload interface{}, opts ...queue.EnqueueOption) (string, error)
}

// MirrorScheduler queues mirror reconciliation jobs
type MirrorScheduler struct {
	queue Enqueuer
	log   logrus.FieldLogger
}

// NewMirrorScheduler creates a MirrorScheduler
func NewMirrorScheduler(q Enqueuer, log logrus.FieldLogger) *MirrorScheduler {
	return &MirrorScheduler{queue: q, log: log}
}

// ScheduleReconcile enqueues a rebuild of the application's mirror
func (s *MirrorScheduler) ScheduleReconcile(ctx context.Context, applicationID uuid.UUID) error {
	jobID, err := s.queue.Enqueue(ctx, MirrorReconcileJobType, MirrorReconcileJobPayload{
		ApplicationID: applicationID,
	}, queue.WithMaxRetries(5))
	if err != nil {
		return fmt.Errorf("failed to enqueue mirror reconcile job: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"job_id":         jobID,
		"application_id": applicationID,
	}).Debug("mirror reconcile job enqueued")
	return nil
}

// NewMirrorReconcileHandler returns the queue handler for mirror reconcile jobs
func NewMirrorReconcileHandler(reconciler MirrorReconciler, log logrus.FieldLogger) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		var payload MirrorReconcileJobPayload
		if err := job.Decode(&payload); err != nil {
			return fmt.Errorf("failed to unmarshal mirror reconcile payload: %w", err)
		}
		if payload.ApplicationID == uuid.Nil {
			return fmt.Errorf("mirror reconcile job %s has no application id", job.ID)
		}

		if err := reconciler.ReconcileMirror(ctx, payload.ApplicationID); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"job_id":         job.ID,
			"application_id": payload.ApplicationID,
		}).Info("documents mirror reconciled")
		return nil
	}
}

// RepairAllMirrors rebuilds every documents mirror. It is run periodically so
// that entries lost together with their repair job are still corrected.
func RepairAllMirrors(ctx context.Context, reconciler MirrorReconciler, log logrus.FieldLogger) {
	repaired, err := reconciler.ReconcileAll(ctx)
	entry := log.WithField("repaired", repaired)
	if err != nil {
		entry.WithError(err).Error("documents mirror repair finished with errors")
		return
	}
	entry.Info("documents mirror repair finished")
}
