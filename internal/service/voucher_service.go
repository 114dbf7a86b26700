package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/metrics"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

const (
	voucherCodePrefix   = "WIFI"
	voucherCodeRandLen  = 8
	voucherCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	voucherBatchMax = 1000

	// Placeholder accounts created on redemption get a synthetic email in
	// this domain so the users.email unique constraint stays satisfiable.
	voucherAccountEmailDomain = "voucher.hotspot.local"
)

var (
	ErrVoucherNotFound     = errors.New("voucher not found")
	ErrVoucherUsed         = errors.New("voucher already used")
	ErrVoucherPlanMissing  = errors.New("voucher plan missing")
	ErrInvalidVoucherInput = errors.New("invalid voucher input")
)

// RedeemResult carries the account that received the credit and the plan
// whose limits were applied.
type RedeemResult struct {
	User    *model.User    `json:"user"`
	Plan    *model.Plan    `json:"plan"`
	Voucher *model.Voucher `json:"voucher"`
}

type VoucherService struct {
	voucherRepo repository.VoucherRepository
	planRepo    repository.PlanRepository
	paymentRepo repository.PaymentRepository
	auditRepo   repository.AuditRepository
	pool        *pgxpool.Pool
	logger      *zap.Logger
}

func NewVoucherService(
	voucherRepo repository.VoucherRepository,
	planRepo repository.PlanRepository,
	paymentRepo repository.PaymentRepository,
	auditRepo repository.AuditRepository,
	pool *pgxpool.Pool,
	logger *zap.Logger,
) *VoucherService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VoucherService{
		voucherRepo: voucherRepo,
		planRepo:    planRepo,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		pool:        pool,
		logger:      logger,
	}
}

// Redeem consumes a voucher code exactly once. It locks the voucher row,
// resolves the plan, finds or creates the placeholder account derived from
// the code, flips the voucher unused -> used under a status guard, credits
// the account, and writes the payment row, all in one transaction, so a
// failure at any point leaves no half-credited account. The status-guarded
// update is the serialization point: of two concurrent redemptions of the
// same code, exactly one commits and the loser sees ErrVoucherUsed.
func (s *VoucherService) Redeem(ctx context.Context, code string) (*RedeemResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, ErrInvalidVoucherInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	voucher, err := s.voucherRepo.FindByCodeForUpdate(ctx, tx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.IncVoucherRedemption("not_found")
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	if voucher.Status != model.VoucherStatusUnused {
		metrics.IncVoucherRedemption("conflict")
		return nil, ErrVoucherUsed
	}

	plan, err := s.findPlanTx(ctx, tx, voucher.PlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The referenced plan was deleted out from under the voucher.
			// Fail loudly instead of crediting nothing.
			metrics.IncVoucherRedemption("plan_missing")
			return nil, ErrVoucherPlanMissing
		}
		return nil, err
	}

	user, err := s.findOrCreateVoucherAccountTx(ctx, tx, normalized)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.voucherRepo.MarkUsed(ctx, tx, voucher.ID, user.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.IncVoucherRedemption("conflict")
			return nil, ErrVoucherUsed
		}
		return nil, err
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
		return nil, err
	}

	payment := &model.Payment{
		UserID:        user.ID,
		PlanID:        &plan.ID,
		VoucherID:     &voucher.ID,
		Amount:        plan.Price,
		PaymentMethod: model.PaymentMethodVoucher,
		CreatedAt:     now,
	}
	if err := s.paymentRepo.CreateTx(ctx, tx, payment); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	user.DataBalance += plan.DataLimit
	user.TimeBalance += plan.TimeLimit
	voucher.Status = model.VoucherStatusUsed
	voucher.UserID = &user.ID
	voucher.UsedAt = &now

	metrics.IncVoucherRedemption("success")
	metrics.RecordPayment(model.PaymentMethodVoucher, plan.Price)
	s.writeAudit(ctx, &user.ID, "voucher_redeem",
		fmt.Sprintf("Redeemed voucher for plan %s", plan.Name))

	return &RedeemResult{User: user, Plan: plan, Voucher: voucher}, nil
}

// BatchGenerate creates quantity vouchers for the given plan on behalf of
// an admin operator. Codes are WIFI + 8 random uppercase alphanumerics.
func (s *VoucherService) BatchGenerate(ctx context.Context, operatorID string, planID string, quantity int) ([]*model.Voucher, error) {
	if quantity <= 0 || quantity > voucherBatchMax {
		return nil, ErrInvalidVoucherInput
	}

	operatorUUID, err := uuid.Parse(strings.TrimSpace(operatorID))
	if err != nil {
		return nil, ErrInvalidUserID
	}
	planUUID, err := uuid.Parse(strings.TrimSpace(planID))
	if err != nil {
		return nil, ErrInvalidVoucherInput
	}

	plan, err := s.planRepo.FindByID(ctx, planUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	vouchers := make([]*model.Voucher, 0, quantity)
	for i := 0; i < quantity; i++ {
		code, err := GenerateVoucherCode()
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, &model.Voucher{
			ID:        uuid.New(),
			Code:      code,
			PlanID:    plan.ID,
			Status:    model.VoucherStatusUnused,
			CreatedBy: &operatorUUID,
			CreatedAt: now,
		})
	}

	if err := s.voucherRepo.BatchCreate(ctx, vouchers); err != nil {
		return nil, err
	}

	metrics.AddVouchersGenerated(len(vouchers))
	s.writeAudit(ctx, &operatorUUID, "vouchers_generate",
		fmt.Sprintf("Generated %d vouchers for plan %s", quantity, plan.Name))

	return vouchers, nil
}

func (s *VoucherService) List(ctx context.Context, filter repository.VoucherListFilter) ([]*model.VoucherDetail, int64, error) {
	items, err := s.voucherRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.voucherRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (s *VoucherService) findPlanTx(ctx context.Context, tx pgx.Tx, planID uuid.UUID) (*model.Plan, error) {
	plan := &model.Plan{}
	err := tx.QueryRow(
		ctx,
		`SELECT id, name, description, data_limit, time_limit, price, validity_days, status, created_at
		   FROM plans
		  WHERE id = $1`,
		planID,
	).Scan(
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
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// findOrCreateVoucherAccountTx resolves the placeholder account for a code.
// The password is the code itself, so a guest holding the printed slip can
// log back into the same account later.
func (s *VoucherService) findOrCreateVoucherAccountTx(ctx context.Context, tx pgx.Tx, code string) (*model.User, error) {
	username := VoucherAccountUsername(code)

	user := &model.User{}
	err := tx.QueryRow(
		ctx,
		`SELECT id, username, email, password_hash, phone, role, status, data_balance, time_balance, created_at, updated_at
		   FROM users
		  WHERE username = $1
		  FOR UPDATE`,
		username,
	).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Role,
		&user.Status,
		&user.DataBalance,
		&user.TimeBalance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user = &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        fmt.Sprintf("%s@%s", strings.ToLower(username), voucherAccountEmailDomain),
		PasswordHash: string(hashed),
		Role:         model.UserRoleUser,
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO users (id, username, email, password_hash, role, status, data_balance, time_balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, $8)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *VoucherService) writeAudit(ctx context.Context, userID *uuid.UUID, action, details string) {
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

// VoucherAccountUsername is the deterministic placeholder account name for
// a voucher code.
func VoucherAccountUsername(code string) string {
	return "voucher_" + strings.ToUpper(strings.TrimSpace(code))
}

// GenerateVoucherCode returns WIFI plus 8 random uppercase alphanumerics.
func GenerateVoucherCode() (string, error) {
	buf := make([]byte, voucherCodeRandLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(voucherCodePrefix) + voucherCodeRandLen)
	sb.WriteString(voucherCodePrefix)
	for _, b := range buf {
		sb.WriteByte(voucherCodeAlphabet[int(b)%len(voucherCodeAlphabet)])
	}
	return sb.String(), nil
}
