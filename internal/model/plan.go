package model

import (
	"time"

	"github.com/google/uuid"
)

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusArchived PlanStatus = "archived"
)

// Plan is a purchasable bundle of data (MB) and time (minutes).
// Plans are immutable after creation; retiring one is an archive, not an edit.
type Plan struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Description  string     `db:"description" json:"description"`
	DataLimit    int64      `db:"data_limit" json:"data_limit"`
	TimeLimit    int64      `db:"time_limit" json:"time_limit"`
	Price        float64    `db:"price" json:"price"`
	ValidityDays int        `db:"validity_days" json:"validity_days"`
	Status       PlanStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
