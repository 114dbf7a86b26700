package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TokenJob struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewTokenJob(pool *pgxpool.Pool, logger *zap.Logger) *TokenJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TokenJob{pool: pool, logger: logger}
}

// CleanExpired drops refresh tokens past their expiry. Rotation already
// deletes the common case; this catches tokens that were simply abandoned.
func (j *TokenJob) CleanExpired() {
	if j == nil || j.pool == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tag, err := j.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		j.logger.Error("refresh token cleanup failed", zap.Error(err))
		return
	}
	if tag.RowsAffected() > 0 {
		j.logger.Info("expired refresh tokens removed", zap.Int64("count", tag.RowsAffected()))
	}
}
