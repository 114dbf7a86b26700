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

type planRepository struct {
	pool *pgxpool.Pool
}

func NewPlanRepository(pool *pgxpool.Pool) repository.PlanRepository {
	return &planRepository{pool: pool}
}

var _ repository.PlanRepository = (*planRepository)(nil)

const planColumns = `
	id,
	name,
	description,
	data_limit,
	time_limit,
	price,
	validity_days,
	status,
	created_at
`

func (r *planRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	plan, err := scanPlan(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *planRepository) Create(ctx context.Context, plan *model.Plan) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO plans (
			id, name, description, data_limit, time_limit,
			price, validity_days, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.DataLimit,
		plan.TimeLimit,
		plan.Price,
		plan.ValidityDays,
		plan.Status,
		plan.CreatedAt,
	)
	return err
}

func (r *planRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PlanStatus) error {
	query := `UPDATE plans SET status = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *planRepository) ListActive(ctx context.Context) ([]*model.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE status = $1 ORDER BY price ASC`
	return r.queryPlans(ctx, query, model.PlanStatusActive)
}

func (r *planRepository) ListAll(ctx context.Context) ([]*model.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans ORDER BY created_at DESC`
	return r.queryPlans(ctx, query)
}

func (r *planRepository) queryPlans(ctx context.Context, query string, args ...any) ([]*model.Plan, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]*model.Plan, 0, 16)
	for rows.Next() {
		item, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

func scanPlan(src scanTarget) (*model.Plan, error) {
	plan := &model.Plan{}
	err := src.Scan(
		&plan.ID,
		&plan.Name,
		&plan.Description,
		&plan.DataLimit,
		&plan.TimeLimit,
		&plan.Price,
		&plan.ValidityDays,
		&plan.Status,
		&plan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return plan, nil
}
