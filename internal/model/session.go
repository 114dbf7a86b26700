package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusTerminated SessionStatus = "terminated"
)

// Session is one tracked period of hotspot usage for a device.
// active -> terminated is one-way; terminated is terminal.
type Session struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	UserID    uuid.UUID     `db:"user_id" json:"user_id"`
	DeviceMAC string        `db:"device_mac" json:"device_mac"`
	IPAddress string        `db:"ip_address" json:"ip_address"`
	StartTime time.Time     `db:"start_time" json:"start_time"`
	EndTime   *time.Time    `db:"end_time" json:"end_time,omitempty"`
	Status    SessionStatus `db:"status" json:"status"`
	DataUsed  int64         `db:"data_used" json:"data_used"`
	TimeUsed  int64         `db:"time_used" json:"time_used"`
}

// SessionDetail joins the owning username for display.
type SessionDetail struct {
	Session
	Username string `db:"username" json:"username"`
}
