package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

type sessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) repository.SessionRepository {
	return &sessionRepository{pool: pool}
}

var _ repository.SessionRepository = (*sessionRepository)(nil)

const sessionColumns = `
	id,
	user_id,
	device_mac,
	ip_address,
	start_time,
	end_time,
	status,
	data_used,
	time_used
`

func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.StartTime.IsZero() {
		session.StartTime = time.Now().UTC()
	}
	if session.Status == "" {
		session.Status = model.SessionStatusActive
	}

	query := `
		INSERT INTO sessions (
			id, user_id, device_mac, ip_address, start_time,
			status, data_used, time_used
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.DeviceMAC,
		session.IPAddress,
		session.StartTime,
		session.Status,
		session.DataUsed,
		session.TimeUsed,
	)
	return err
}

// Terminate flips an active session to terminated. The status guard makes the
// call idempotent: a second terminate matches no rows and reports false.
func (r *sessionRepository) Terminate(ctx context.Context, id uuid.UUID, endTime time.Time) (bool, error) {
	query := `
		UPDATE sessions
		SET status = $2,
			end_time = $3,
			time_used = GREATEST(0, EXTRACT(EPOCH FROM ($3 - start_time))::BIGINT / 60)
		WHERE id = $1
		  AND status = $4
	`
	tag, err := r.pool.Exec(ctx, query, id, model.SessionStatusTerminated, endTime, model.SessionStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *sessionRepository) TerminateStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET status = $1,
			end_time = NOW(),
			time_used = GREATEST(0, EXTRACT(EPOCH FROM (NOW() - start_time))::BIGINT / 60)
		WHERE status = $2
		  AND start_time < $3
	`
	tag, err := r.pool.Exec(ctx, query, model.SessionStatusTerminated, model.SessionStatusActive, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *sessionRepository) ListActive(ctx context.Context) ([]*model.SessionDetail, error) {
	query := `
		SELECT
			s.id, s.user_id, s.device_mac, s.ip_address, s.start_time,
			s.end_time, s.status, s.data_used, s.time_used,
			u.username
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.status = $1
		ORDER BY s.start_time DESC
	`

	rows, err := r.pool.Query(ctx, query, model.SessionStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*model.SessionDetail, 0, 32)
	for rows.Next() {
		item := &model.SessionDetail{}
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.DeviceMAC,
			&item.IPAddress,
			&item.StartTime,
			&item.EndTime,
			&item.Status,
			&item.DataUsed,
			&item.TimeUsed,
			&item.Username,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *sessionRepository) CountActive(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM sessions WHERE status = $1`,
		model.SessionStatusActive,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func scanSession(src scanTarget) (*model.Session, error) {
	session := &model.Session{}
	err := src.Scan(
		&session.ID,
		&session.UserID,
		&session.DeviceMAC,
		&session.IPAddress,
		&session.StartTime,
		&session.EndTime,
		&session.Status,
		&session.DataUsed,
		&session.TimeUsed,
	)
	if err != nil {
		return nil, err
	}

	return session, nil
}
