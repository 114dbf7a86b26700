package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is one append-only row in the logs table. Writes are
// best-effort: a failed audit write never fails the operation it records.
type AuditLog struct {
	ID        int64      `db:"id" json:"id"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Action    string     `db:"action" json:"action"`
	Details   *string    `db:"details" json:"details,omitempty"`
	IPAddress *string    `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
