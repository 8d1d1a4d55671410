package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// PaymentExpirer fails payments left pending for too long
type PaymentExpirer interface {
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

// SweepStalePayments marks payments pending for longer than ttl as failed
func SweepStalePayments(ctx context.Context, expirer PaymentExpirer, ttl time.Duration, log logrus.FieldLogger) {
	expired, err := expirer.ExpireStale(ctx, ttl)
	if err != nil {
		log.WithError(err).Error("stale payment sweep failed")
		return
	}
	log.WithField("expired", expired).Debug("stale payment sweep finished")
}
