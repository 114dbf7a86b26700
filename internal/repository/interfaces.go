package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
)

// ErrNotFound is returned by finders when no row matches.
var ErrNotFound = errors.New("record not found")

type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

type UserListFilter struct {
	Role       *model.UserRole   `json:"role,omitempty"`
	Status     *model.UserStatus `json:"status,omitempty"`
	Keyword    *string           `json:"keyword,omitempty"`
	Pagination Pagination        `json:"pagination"`
}

type VoucherListFilter struct {
	PlanID     *uuid.UUID           `json:"plan_id,omitempty"`
	Status     *model.VoucherStatus `json:"status,omitempty"`
	Keyword    *string              `json:"keyword,omitempty"`
	Pagination Pagination           `json:"pagination"`
}

type PaymentListFilter struct {
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Method     *string    `json:"method,omitempty"`
	Pagination Pagination `json:"pagination"`
}

type AuditListFilter struct {
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Action     *string    `json:"action,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Pagination Pagination `json:"pagination"`
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error
	// CreditBalance atomically adds non-negative deltas to both balances.
	CreditBalance(ctx context.Context, id uuid.UUID, dataDelta, timeDelta int64) error
	List(ctx context.Context, filter UserListFilter) ([]*model.User, error)
	Count(ctx context.Context, filter UserListFilter) (int64, error)
}

type PlanRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Plan, error)
	Create(ctx context.Context, plan *model.Plan) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PlanStatus) error
	// ListActive returns active plans ordered by price ascending.
	ListActive(ctx context.Context) ([]*model.Plan, error)
	ListAll(ctx context.Context) ([]*model.Plan, error)
}

type VoucherRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Voucher, error)
	// FindByCodeForUpdate locks the voucher row inside tx.
	FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Voucher, error)
	// MarkUsed performs the unused -> used transition inside tx, guarded on
	// current status. Returns ErrNotFound when the guard does not match.
	MarkUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, userID uuid.UUID, usedAt time.Time) error
	BatchCreate(ctx context.Context, vouchers []*model.Voucher) error
	List(ctx context.Context, filter VoucherListFilter) ([]*model.VoucherDetail, error)
	Count(ctx context.Context, filter VoucherListFilter) (int64, error)
}

type SessionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Create(ctx context.Context, session *model.Session) error
	// Terminate closes a session iff it is still active; closing a
	// terminated session affects no rows and reports false.
	Terminate(ctx context.Context, id uuid.UUID, endTime time.Time) (bool, error)
	TerminateStale(ctx context.Context, olderThan time.Time) (int64, error)
	ListActive(ctx context.Context) ([]*model.SessionDetail, error)
	CountActive(ctx context.Context) (int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	CreateTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error
	List(ctx context.Context, filter PaymentListFilter) ([]*model.PaymentDetail, error)
	Count(ctx context.Context, filter PaymentListFilter) (int64, error)
	RevenueStats(ctx context.Context) (*model.RevenueStats, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filter AuditListFilter) ([]*model.AuditLog, error)
}
