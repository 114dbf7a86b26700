package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentMethodOnline  = "online"
	PaymentMethodVoucher = "voucher"

	PaymentStatusCompleted = "completed"
)

// Payment is an append-only ledger row. There is no payment gateway;
// records are written as completed at creation and never mutated.
type Payment struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	PlanID        *uuid.UUID `db:"plan_id" json:"plan_id,omitempty"`
	VoucherID     *uuid.UUID `db:"voucher_id" json:"voucher_id,omitempty"`
	Amount        float64    `db:"amount" json:"amount"`
	PaymentMethod string     `db:"payment_method" json:"payment_method"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// PaymentDetail is the admin ledger row joined with username and plan name.
type PaymentDetail struct {
	Payment
	Username string  `db:"username" json:"username"`
	PlanName *string `db:"plan_name" json:"plan_name,omitempty"`
}

// RevenueStats aggregates the completed-payments ledger.
type RevenueStats struct {
	TotalTransactions int64   `json:"total_transactions"`
	TotalRevenue      float64 `json:"total_revenue"`
	AvgTransaction    float64 `json:"avg_transaction"`
}
