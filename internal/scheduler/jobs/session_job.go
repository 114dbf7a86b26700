package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/metrics"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
)

const defaultSessionMaxAge = 24 * time.Hour

type SessionJob struct {
	sessionService *service.SessionService
	maxAge         time.Duration
	logger         *zap.Logger
}

func NewSessionJob(sessionService *service.SessionService, maxAge time.Duration, logger *zap.Logger) *SessionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}

	return &SessionJob{
		sessionService: sessionService,
		maxAge:         maxAge,
		logger:         logger,
	}
}

// SweepStale closes sessions whose devices left without disconnecting.
// Captive-portal clients rarely log out; this is the main terminate path.
func (j *SessionJob) SweepStale() {
	if j == nil || j.sessionService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	closed, err := j.sessionService.SweepStale(ctx, j.maxAge)
	if err != nil {
		j.logger.Error("stale session sweep failed", zap.Error(err))
		return
	}
	if closed > 0 {
		j.logger.Info("stale session sweep done", zap.Int64("closed", closed))
	}
}

func (j *SessionJob) RefreshMetrics() {
	if j == nil || j.sessionService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.sessionService.CountActive(ctx)
	if err != nil {
		j.logger.Warn("refresh session metrics failed", zap.Error(err))
		return
	}
	metrics.SetActiveSessions(count)
}
