package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/config"
	"github.com/civilregistry/backend/internal/queue"
)

// RegisterAllJobHandlers registers all job handlers with the processor
func RegisterAllJobHandlers(p *queue.JobProcessor, reconciler MirrorReconciler, log logrus.FieldLogger) {
	p.RegisterHandler(MirrorReconcileJobType, NewMirrorReconcileHandler(reconciler, log.WithField("job", MirrorReconcileJobType)))
}

// ScheduleRecurringJobs registers the periodic jobs on a new UTC scheduler.
// The caller starts and stops it.
func ScheduleRecurringJobs(
	ctx context.Context,
	cfg config.JobsConfig,
	reconciler MirrorReconciler,
	payments PaymentExpirer,
	log logrus.FieldLogger,
) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	repairLog := log.WithField("job", "mirror_repair")
	if _, err := scheduler.Every(cfg.RepairInterval).WaitForSchedule().Do(func() {
		RepairAllMirrors(ctx, reconciler, repairLog)
	}); err != nil {
		return nil, err
	}

	sweepLog := log.WithField("job", "payment_sweep")
	if _, err := scheduler.Every(time.Hour).Do(func() {
		SweepStalePayments(ctx, payments, cfg.PaymentTTL, sweepLog)
	}); err != nil {
		return nil, err
	}

	return scheduler, nil
}
