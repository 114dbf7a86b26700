package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/sanitize"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

var (
	ErrPlanNotFound     = errors.New("plan not found")
	ErrPlanArchived     = errors.New("plan archived")
	ErrInvalidPlanInput = errors.New("invalid plan input")
)

type PlanService struct {
	planRepo  repository.PlanRepository
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewPlanService(
	planRepo repository.PlanRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) *PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PlanService{
		planRepo:  planRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

type CreatePlanInput struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	DataLimit    int64   `json:"data_limit"`
	TimeLimit    int64   `json:"time_limit"`
	Price        float64 `json:"price"`
	ValidityDays int     `json:"validity_days"`
}

// Create registers a new plan. A plan must grant something: at least one
// of data and time positive. Price may be zero for promotional plans.
func (s *PlanService) Create(ctx context.Context, adminID string, input CreatePlanInput) (*model.Plan, error) {
	admin, err := uuid.Parse(strings.TrimSpace(adminID))
	if err != nil {
		return nil, ErrInvalidUserID
	}

	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidPlanInput
	}
	if input.DataLimit < 0 || input.TimeLimit < 0 {
		return nil, ErrInvalidPlanInput
	}
	if input.DataLimit == 0 && input.TimeLimit == 0 {
		return nil, ErrInvalidPlanInput
	}
	if input.Price < 0 {
		return nil, ErrInvalidPlanInput
	}

	validity := input.ValidityDays
	if validity <= 0 {
		validity = 30
	}

	plan := &model.Plan{
		ID:           uuid.New(),
		Name:         sanitize.Text(name),
		Description:  sanitize.Description(input.Description),
		DataLimit:    input.DataLimit,
		TimeLimit:    input.TimeLimit,
		Price:        input.Price,
		ValidityDays: validity,
		Status:       model.PlanStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, &admin, "plan_create",
		fmt.Sprintf("Plan %s created", plan.Name))

	return plan, nil
}

func (s *PlanService) Get(ctx context.Context, planID string) (*model.Plan, error) {
	pid, err := uuid.Parse(strings.TrimSpace(planID))
	if err != nil {
		return nil, ErrPlanNotFound
	}

	plan, err := s.planRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// ListActive is the public storefront view, cheapest first.
func (s *PlanService) ListActive(ctx context.Context) ([]*model.Plan, error) {
	return s.planRepo.ListActive(ctx)
}

func (s *PlanService) ListAll(ctx context.Context) ([]*model.Plan, error) {
	return s.planRepo.ListAll(ctx)
}

// Archive retires a plan from the storefront. Existing vouchers for the
// plan stay redeemable; archiving only blocks new purchases.
func (s *PlanService) Archive(ctx context.Context, adminID, planID string) (*model.Plan, error) {
	admin, err := uuid.Parse(strings.TrimSpace(adminID))
	if err != nil {
		return nil, ErrInvalidUserID
	}
	pid, err := uuid.Parse(strings.TrimSpace(planID))
	if err != nil {
		return nil, ErrPlanNotFound
	}

	if err := s.planRepo.UpdateStatus(ctx, pid, model.PlanStatusArchived); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	s.writeAudit(ctx, &admin, "plan_archive",
		fmt.Sprintf("Plan %s archived", pid))

	return s.planRepo.FindByID(ctx, pid)
}

func (s *PlanService) writeAudit(ctx context.Context, userID *uuid.UUID, action, details string) {
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
