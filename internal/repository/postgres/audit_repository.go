package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

var _ repository.AuditRepository = (*auditRepository)(nil)

const auditColumns = `
	id,
	user_id,
	action,
	details,
	ip_address,
	created_at
`

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO logs (user_id, action, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	return r.pool.QueryRow(
		ctx,
		query,
		log.UserID,
		log.Action,
		log.Details,
		log.IPAddress,
		log.CreatedAt,
	).Scan(&log.ID)
}

func (r *auditRepository) List(ctx context.Context, filter repository.AuditListFilter) ([]*model.AuditLog, error) {
	limit, offset := normalizePagination(filter.Pagination)

	args := make([]any, 0, 6)
	conditions := make([]string, 0, 4)

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.StartTime != nil {
		args = append(args, *filter.StartTime)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndTime != nil {
		args = append(args, *filter.EndTime)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(auditColumns)
	builder.WriteString(" FROM logs")

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	args = append(args, limit, offset)
	_, _ = fmt.Fprintf(&builder, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*model.AuditLog, 0, limit)
	for rows.Next() {
		item := &model.AuditLog{}
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Action,
			&item.Details,
			&item.IPAddress,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}
