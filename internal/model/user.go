package model

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

type UserRole string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Role         UserRole   `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`
	DataBalance  int64      `db:"data_balance" json:"data_balance"`
	TimeBalance  int64      `db:"time_balance" json:"time_balance"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// HasBalance reports whether the user can open a network session.
// Either entitlement being positive is enough.
func (u *User) HasBalance() bool {
	return u.DataBalance > 0 || u.TimeBalance > 0
}
