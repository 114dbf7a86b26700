package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

type voucherRepository struct {
	pool *pgxpool.Pool
}

func NewVoucherRepository(pool *pgxpool.Pool) repository.VoucherRepository {
	return &voucherRepository{pool: pool}
}

var _ repository.VoucherRepository = (*voucherRepository)(nil)

const voucherColumns = `
	id,
	code,
	plan_id,
	status,
	user_id,
	used_at,
	created_by,
	created_at
`

func (r *voucherRepository) FindByCode(ctx context.Context, code string) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`
	voucher, err := scanVoucher(r.pool.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func (r *voucherRepository) FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1 FOR UPDATE`
	voucher, err := scanVoucher(tx.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

// MarkUsed is the redeem-once gate: the WHERE clause re-checks the status so
// only one of two racing redemptions can flip the row.
func (r *voucherRepository) MarkUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, userID uuid.UUID, usedAt time.Time) error {
	query := `
		UPDATE vouchers
		SET status = $2,
			user_id = $3,
			used_at = $4
		WHERE id = $1
		  AND status = $5
	`
	tag, err := tx.Exec(ctx, query, id, model.VoucherStatusUsed, userID, usedAt, model.VoucherStatusUnused)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *voucherRepository) BatchCreate(ctx context.Context, vouchers []*model.Voucher) error {
	if len(vouchers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, voucher := range vouchers {
		if voucher.ID == uuid.Nil {
			voucher.ID = uuid.New()
		}
		if voucher.CreatedAt.IsZero() {
			voucher.CreatedAt = now
		}
		batch.Queue(
			`INSERT INTO vouchers (id, code, plan_id, status, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			voucher.ID,
			voucher.Code,
			voucher.PlanID,
			voucher.Status,
			voucher.CreatedBy,
			voucher.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close() //nolint:errcheck

	for range vouchers {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *voucherRepository) List(ctx context.Context, filter repository.VoucherListFilter) ([]*model.VoucherDetail, error) {
	limit, offset := normalizePagination(filter.Pagination)

	args := make([]any, 0, 6)
	conditions := buildVoucherListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString(`
		SELECT
			v.id, v.code, v.plan_id, v.status, v.user_id, v.used_at,
			v.created_by, v.created_at,
			p.name AS plan_name,
			u.username
		FROM vouchers v
		JOIN plans p ON p.id = v.plan_id
		LEFT JOIN users u ON u.id = v.user_id
	`)
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	args = append(args, limit, offset)
	_, _ = fmt.Fprintf(&builder, " ORDER BY v.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*model.VoucherDetail, 0, limit)
	for rows.Next() {
		item := &model.VoucherDetail{}
		if err := rows.Scan(
			&item.ID,
			&item.Code,
			&item.PlanID,
			&item.Status,
			&item.UserID,
			&item.UsedAt,
			&item.CreatedBy,
			&item.CreatedAt,
			&item.PlanName,
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

func (r *voucherRepository) Count(ctx context.Context, filter repository.VoucherListFilter) (int64, error) {
	args := make([]any, 0, 4)
	conditions := buildVoucherListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString("SELECT COUNT(*) FROM vouchers v")
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, builder.String(), args...).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

func buildVoucherListConditions(filter repository.VoucherListFilter, args *[]any) []string {
	conditions := make([]string, 0, 3)

	if filter.PlanID != nil {
		*args = append(*args, *filter.PlanID)
		conditions = append(conditions, fmt.Sprintf("v.plan_id = $%d", len(*args)))
	}
	if filter.Status != nil {
		*args = append(*args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("v.status = $%d", len(*args)))
	}
	if filter.Keyword != nil {
		keyword := "%" + strings.TrimSpace(*filter.Keyword) + "%"
		*args = append(*args, keyword)
		conditions = append(conditions, fmt.Sprintf("v.code ILIKE $%d", len(*args)))
	}

	return conditions
}

func scanVoucher(src scanTarget) (*model.Voucher, error) {
	voucher := &model.Voucher{}
	err := src.Scan(
		&voucher.ID,
		&voucher.Code,
		&voucher.PlanID,
		&voucher.Status,
		&voucher.UserID,
		&voucher.UsedAt,
		&voucher.CreatedBy,
		&voucher.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return voucher, nil
}
