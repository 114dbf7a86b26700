package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/metrics"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

var (
	ErrInvalidCreditDelta = errors.New("credit deltas must be non-negative and not both zero")
)

type BillingService struct {
	userRepo    repository.UserRepository
	planRepo    repository.PlanRepository
	paymentRepo repository.PaymentRepository
	auditRepo   repository.AuditRepository
	pool        *pgxpool.Pool
	logger      *zap.Logger
}

func NewBillingService(
	userRepo repository.UserRepository,
	planRepo repository.PlanRepository,
	paymentRepo repository.PaymentRepository,
	auditRepo repository.AuditRepository,
	pool *pgxpool.Pool,
	logger *zap.Logger,
) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BillingService{
		userRepo:    userRepo,
		planRepo:    planRepo,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		pool:        pool,
		logger:      logger,
	}
}

// Recharge purchases a plan for the user: one completed payment row and
// the plan's allotment added on top of whatever balance remains. Both
// writes share a transaction so a failed credit leaves no orphan payment.
func (s *BillingService) Recharge(ctx context.Context, userID, planID string) (*model.Payment, *model.User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, nil, ErrInvalidUserID
	}
	pid, err := uuid.Parse(strings.TrimSpace(planID))
	if err != nil {
		return nil, nil, ErrPlanNotFound
	}

	user, err := s.userRepo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	if user.Status != model.UserStatusActive {
		return nil, nil, ErrUserInactive
	}

	plan, err := s.planRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrPlanNotFound
		}
		return nil, nil, err
	}
	if plan.Status != model.PlanStatusActive {
		return nil, nil, ErrPlanArchived
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	payment := &model.Payment{
		UserID:        user.ID,
		PlanID:        &plan.ID,
		Amount:        plan.Price,
		PaymentMethod: model.PaymentMethodOnline,
		CreatedAt:     now,
	}
	if err := s.paymentRepo.CreateTx(ctx, tx, payment); err != nil {
		return nil, nil, err
	}

	if _, err := tx.Exec(
		ctx,
		`UPDATE users
		    SET data_balance = data_balance + $2,
		        time_balance = time_balance + $3,
		        updated_at = $4
		  WHERE id = $1`,
		user.ID,
		plan.DataLimit,
		plan.TimeLimit,
		now,
	); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	user.DataBalance += plan.DataLimit
	user.TimeBalance += plan.TimeLimit

	metrics.RecordPayment(model.PaymentMethodOnline, plan.Price)
	s.writeAudit(ctx, &user.ID, "recharge",
		fmt.Sprintf("Recharged plan %s for %.2f", plan.Name, plan.Price))

	return payment, user, nil
}

// Credit is the admin adjustment path: add data (MB) and/or time (minutes)
// directly without a payment row. Deltas are additive only.
func (s *BillingService) Credit(ctx context.Context, adminID, userID string, dataDelta, timeDelta int64) (*model.User, error) {
	if dataDelta < 0 || timeDelta < 0 || (dataDelta == 0 && timeDelta == 0) {
		return nil, ErrInvalidCreditDelta
	}

	admin, err := uuid.Parse(strings.TrimSpace(adminID))
	if err != nil {
		return nil, ErrInvalidUserID
	}
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrInvalidUserID
	}

	if err := s.userRepo.CreditBalance(ctx, uid, dataDelta, timeDelta); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.writeAudit(ctx, &admin, "balance_credit",
		fmt.Sprintf("Credited user %s with %d MB, %d min", uid, dataDelta, timeDelta))

	return s.userRepo.FindByID(ctx, uid)
}

func (s *BillingService) ListPayments(ctx context.Context, filter repository.PaymentListFilter) ([]*model.PaymentDetail, int64, error) {
	items, err := s.paymentRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.paymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (s *BillingService) RevenueStats(ctx context.Context) (*model.RevenueStats, error) {
	return s.paymentRepo.RevenueStats(ctx)
}

func (s *BillingService) writeAudit(ctx context.Context, userID *uuid.UUID, action, details string) {
	if s.auditRepo == nil {
		return
	}

	if err := s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:    userID,
		Action:    action,
		Details:   &details,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("write audit log failed", zap.String("action", action), zap.Error(err))
	}
}
