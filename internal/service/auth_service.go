package service

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
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
	jwtutil "github.com/Logendranm/wifi-hotspot-system-pro/pkg/jwt"
)

const (
	defaultAccessTokenTTL  = 2 * time.Hour
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserInactive        = errors.New("user inactive")
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrUserNotFound        = errors.New("user not found")
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService struct {
	userRepo   repository.UserRepository
	auditRepo  repository.AuditRepository
	voucherSvc *VoucherService
	pool       *pgxpool.Pool
	privateKey *rsa.PrivateKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	voucherSvc *VoucherService,
	pool *pgxpool.Pool,
	privateKey *rsa.PrivateKey,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		userRepo:   userRepo,
		auditRepo:  auditRepo,
		voucherSvc: voucherSvc,
		pool:       pool,
		privateKey: privateKey,
		accessTTL:  defaultAccessTokenTTL,
		refreshTTL: defaultRefreshTokenTTL,
		logger:     logger,
	}
}

// Login authenticates by username or email. The portal login form has a
// single identity field, so both are accepted.
func (s *AuthService) Login(ctx context.Context, identity, password string) (*model.User, *TokenPair, error) {
	if s.privateKey == nil {
		return nil, nil, errors.New("private key is nil")
	}

	identity = strings.TrimSpace(identity)
	user, err := s.userRepo.FindByUsername(ctx, identity)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.userRepo.FindByEmail(ctx, identity)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.IncLoginAttempt("invalid")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if user.Status != model.UserStatusActive {
		metrics.IncLoginAttempt("inactive")
		return nil, nil, ErrUserInactive
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.IncLoginAttempt("invalid")
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokensForUser(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	metrics.IncLoginAttempt("success")
	s.writeAudit(ctx, &user.ID, "user_login")

	return user, tokens, nil
}

// VoucherLogin redeems a code and signs in as the placeholder account the
// redemption created. This is the walk-up path: a guest with only a
// printed voucher gets credited and online in one step.
func (s *AuthService) VoucherLogin(ctx context.Context, code string) (*RedeemResult, *TokenPair, error) {
	if s.privateKey == nil {
		return nil, nil, errors.New("private key is nil")
	}
	if s.voucherSvc == nil {
		return nil, nil, errors.New("voucher service is nil")
	}

	result, err := s.voucherSvc.Redeem(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokensForUser(ctx, result.User)
	if err != nil {
		return nil, nil, err
	}

	metrics.IncLoginAttempt("voucher")
	s.writeAudit(ctx, &result.User.ID, "user_login_voucher")

	return result, tokens, nil
}

// RefreshToken rotates the refresh token: the presented token is consumed
// inside the same transaction that stores its replacement, so a replayed
// token fails cleanly.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if s.privateKey == nil {
		return nil, errors.New("private key is nil")
	}
	if refreshToken == "" {
		return nil, ErrRefreshTokenInvalid
	}

	tokenHash := hashToken(refreshToken)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var userID uuid.UUID
	var username string
	var role model.UserRole
	var status model.UserStatus
	var expiresAt time.Time

	query := `
		SELECT rt.user_id, rt.expires_at, u.username, u.role, u.status
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.user_id
		WHERE rt.token_hash = $1
		FOR UPDATE
	`
	err = tx.QueryRow(ctx, query, tokenHash).Scan(
		&userID,
		&expiresAt,
		&username,
		&role,
		&status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, err
	}

	now := time.Now().UTC()
	if !expiresAt.After(now) {
		if _, delErr := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash); delErr != nil {
			return nil, delErr
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return nil, commitErr
		}
		return nil, ErrRefreshTokenExpired
	}

	if status != model.UserStatusActive {
		return nil, ErrUserInactive
	}

	claims := jwtutil.NewClaims(userID.String(), username, string(role), s.accessTTL)
	newAccessToken, err := jwtutil.GenerateAccessToken(claims, s.privateKey)
	if err != nil {
		return nil, err
	}

	newRefreshToken, err := jwtutil.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		hashToken(newRefreshToken),
		userID,
		now.Add(s.refreshTTL),
		now,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: newAccessToken, RefreshToken: newRefreshToken}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrRefreshTokenInvalid
	}

	var userID uuid.UUID
	err := s.pool.QueryRow(
		ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = $1 RETURNING user_id`,
		hashToken(refreshToken),
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	s.writeAudit(ctx, &userID, "user_logout")

	return nil
}

// ChangePassword verifies the old password, stores the new hash, and
// revokes every refresh token for the account.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPwd, newPwd string) error {
	if len(newPwd) < 6 {
		return ErrInvalidUserInput
	}

	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return ErrUserNotFound
	}

	user, err := s.userRepo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPwd)) != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(
		ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		uid,
		string(hashed),
	); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, uid); err != nil {
		return err
	}

	s.writeAudit(ctx, &uid, "password_change")

	return nil
}

func (s *AuthService) issueTokensForUser(ctx context.Context, user *model.User) (*TokenPair, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}

	claims := jwtutil.NewClaims(user.ID.String(), user.Username, string(user.Role), s.accessTTL)
	accessToken, err := jwtutil.GenerateAccessToken(claims, s.privateKey)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwtutil.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := s.pool.Exec(
		ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		hashToken(refreshToken),
		user.ID,
		now.Add(s.refreshTTL),
		now,
	); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) writeAudit(ctx context.Context, userID *uuid.UUID, action string) {
	if s.auditRepo == nil {
		return
	}

	if err := s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:    userID,
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("write audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
