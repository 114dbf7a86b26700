package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

type paymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) repository.PaymentRepository {
	return &paymentRepository{pool: pool}
}

var _ repository.PaymentRepository = (*paymentRepository)(nil)

const paymentInsert = `
	INSERT INTO payments (
		id, user_id, plan_id, voucher_id, amount,
		payment_method, status, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	preparePayment(payment)
	_, err := r.pool.Exec(ctx, paymentInsert, paymentArgs(payment)...)
	return err
}

func (r *paymentRepository) CreateTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	preparePayment(payment)
	_, err := tx.Exec(ctx, paymentInsert, paymentArgs(payment)...)
	return err
}

func preparePayment(payment *model.Payment) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.Status == "" {
		payment.Status = model.PaymentStatusCompleted
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
}

func paymentArgs(payment *model.Payment) []any {
	return []any{
		payment.ID,
		payment.UserID,
		payment.PlanID,
		payment.VoucherID,
		payment.Amount,
		payment.PaymentMethod,
		payment.Status,
		payment.CreatedAt,
	}
}

func (r *paymentRepository) List(ctx context.Context, filter repository.PaymentListFilter) ([]*model.PaymentDetail, error) {
	limit, offset := normalizePagination(filter.Pagination)

	args := make([]any, 0, 4)
	conditions := buildPaymentListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString(`
		SELECT
			p.id, p.user_id, p.plan_id, p.voucher_id, p.amount,
			p.payment_method, p.status, p.created_at,
			u.username,
			pl.name AS plan_name
		FROM payments p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN plans pl ON pl.id = p.plan_id
	`)
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	args = append(args, limit, offset)
	_, _ = fmt.Fprintf(&builder, " ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*model.PaymentDetail, 0, limit)
	for rows.Next() {
		item := &model.PaymentDetail{}
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.PlanID,
			&item.VoucherID,
			&item.Amount,
			&item.PaymentMethod,
			&item.Status,
			&item.CreatedAt,
			&item.Username,
			&item.PlanName,
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

func (r *paymentRepository) Count(ctx context.Context, filter repository.PaymentListFilter) (int64, error) {
	args := make([]any, 0, 2)
	conditions := buildPaymentListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString("SELECT COUNT(*) FROM payments p")
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

func (r *paymentRepository) RevenueStats(ctx context.Context) (*model.RevenueStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(amount), 0),
			COALESCE(AVG(amount), 0)
		FROM payments
		WHERE status = $1
	`

	stats := &model.RevenueStats{}
	err := r.pool.QueryRow(ctx, query, model.PaymentStatusCompleted).Scan(
		&stats.TotalTransactions,
		&stats.TotalRevenue,
		&stats.AvgTransaction,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func buildPaymentListConditions(filter repository.PaymentListFilter, args *[]any) []string {
	conditions := make([]string, 0, 2)

	if filter.UserID != nil {
		*args = append(*args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("p.user_id = $%d", len(*args)))
	}
	if filter.Method != nil {
		*args = append(*args, *filter.Method)
		conditions = append(conditions, fmt.Sprintf("p.payment_method = $%d", len(*args)))
	}

	return conditions
}
