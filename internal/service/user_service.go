package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository/postgres"
	"github.com/Logendranm/wifi-hotspot-system-pro/pkg/format"
)

var (
	ErrInvalidUserID     = errors.New("invalid user id")
	ErrInvalidUserInput  = errors.New("invalid user input")
	ErrDuplicateIdentity = errors.New("username or email already taken")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

type UserService struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &UserService{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// BalanceSummary is the portal's balance view: raw numbers plus the
// human-readable strings the captive page renders.
type BalanceSummary struct {
	DataBalance   int64  `json:"data_balance"`
	TimeBalance   int64  `json:"time_balance"`
	DataFormatted string `json:"data_formatted"`
	TimeFormatted string `json:"time_formatted"`
	CanConnect    bool   `json:"can_connect"`
}

func (s *UserService) Register(ctx context.Context, username, email, password string, phone *string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUserInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidUserInput
	}
	if len(password) < 6 {
		return nil, ErrInvalidUserInput
	}
	if phone != nil {
		trimmed := strings.TrimSpace(*phone)
		if trimmed == "" {
			phone = nil
		} else {
			phone = &trimmed
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		Phone:        phone,
		Role:         model.UserRoleUser,
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, postgres.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}

	s.writeAudit(ctx, &user.ID, "user_register",
		fmt.Sprintf("User %s registered", username))

	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrInvalidUserID
	}

	user, err := s.userRepo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) CheckBalance(ctx context.Context, userID string) (*BalanceSummary, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &BalanceSummary{
		DataBalance:   user.DataBalance,
		TimeBalance:   user.TimeBalance,
		DataFormatted: format.DataSizeMB(user.DataBalance),
		TimeFormatted: format.TimeDuration(user.TimeBalance),
		CanConnect:    user.HasBalance(),
	}, nil
}

func (s *UserService) List(ctx context.Context, filter repository.UserListFilter) ([]*model.User, int64, error) {
	items, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.userRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// SetStatus activates or deactivates an account. Deactivation does not
// tear down live sessions; the stale sweep or an admin terminate does.
func (s *UserService) SetStatus(ctx context.Context, adminID, userID string, status model.UserStatus) (*model.User, error) {
	if status != model.UserStatusActive && status != model.UserStatusInactive {
		return nil, ErrInvalidUserInput
	}

	admin, err := uuid.Parse(strings.TrimSpace(adminID))
	if err != nil {
		return nil, ErrInvalidUserID
	}
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrInvalidUserID
	}

	if err := s.userRepo.UpdateStatus(ctx, uid, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.writeAudit(ctx, &admin, "user_status_change",
		fmt.Sprintf("User %s set to %s", uid, status))

	return s.userRepo.FindByID(ctx, uid)
}

func (s *UserService) writeAudit(ctx context.Context, userID *uuid.UUID, action, details string) {
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
