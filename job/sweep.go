package job

import (
	"context"
	"time"

	"fileconv/logger"
	"fileconv/metrics"
)

// Sweep runs one expiry pass and returns how many objects it removed
func (s *Service) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	swept, err := s.store.SweepExpired(ctx, retention)
	metrics.SweptObjects.Add(float64(len(swept)))
	for _, obj := range swept {
		logger.Debugw("object expired", "key", obj.Key, "state", StateExpired.String(), "age", obj.Age.Round(time.Second).String())
	}
	return len(swept), err
}

// SweepRoutine deletes expired objects every interval until ctx is cancelled
func (s *Service) SweepRoutine(ctx context.Context, interval, retention time.Duration) {
	logger.Infof("Sweep routine started - runs every %s, retention %s", interval, retention)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweep routine stopped due to context cancellation")
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx, retention)
			if err != nil {
				logger.Errorf("Sweep failed after removing %d objects: %v", n, err)
				continue
			}
			logger.Infof("Scheduled sweep completed, removed %d objects", n)
		}
	}
}
