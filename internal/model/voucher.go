package model

import (
	"time"

	"github.com/google/uuid"
)

type VoucherStatus string

const (
	VoucherStatusUnused VoucherStatus = "unused"
	VoucherStatusUsed   VoucherStatus = "used"
)

// Voucher is a single-use code redeemable for one plan's allotment.
// The unused -> used transition happens at most once.
type Voucher struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	Code      string        `db:"code" json:"code"`
	PlanID    uuid.UUID     `db:"plan_id" json:"plan_id"`
	Status    VoucherStatus `db:"status" json:"status"`
	UserID    *uuid.UUID    `db:"user_id" json:"user_id,omitempty"`
	UsedAt    *time.Time    `db:"used_at" json:"used_at,omitempty"`
	CreatedBy *uuid.UUID    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// VoucherDetail is the admin listing row, joined with the plan name and
// the consuming user's name when redeemed.
type VoucherDetail struct {
	Voucher
	PlanName string  `db:"plan_name" json:"plan_name"`
	Username *string `db:"username" json:"username,omitempty"`
}
