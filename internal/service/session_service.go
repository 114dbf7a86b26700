package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/metrics"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionForbidden    = errors.New("session belongs to another user")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidSessionInput = errors.New("invalid session input")
)

type SessionService struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	logger      *zap.Logger
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		logger:      logger,
	}
}

// Start opens a session for the user. The gate is entitlement, not
// enforcement: a user with either balance positive may connect, and the
// session keeps running even if balances later hit zero.
func (s *SessionService) Start(ctx context.Context, userID string, deviceMAC, ipAddress string) (*model.Session, error) {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrInvalidUserID
	}

	deviceMAC = strings.TrimSpace(deviceMAC)
	ipAddress = strings.TrimSpace(ipAddress)
	if deviceMAC != "" {
		if _, err := net.ParseMAC(deviceMAC); err != nil {
			return nil, ErrInvalidSessionInput
		}
	}
	if ipAddress != "" && net.ParseIP(ipAddress) == nil {
		return nil, ErrInvalidSessionInput
	}

	user, err := s.userRepo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserInactive
	}
	if !user.HasBalance() {
		return nil, ErrInsufficientBalance
	}

	session := &model.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		DeviceMAC: deviceMAC,
		IPAddress: ipAddress,
		StartTime: time.Now().UTC(),
		Status:    model.SessionStatusActive,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.refreshActiveGauge(ctx)
	s.writeAudit(ctx, &user.ID, "session_start",
		fmt.Sprintf("Session started from %s", ipAddress))

	return session, nil
}

// Terminate closes a session. Closing an already-terminated session is a
// no-op success so retried disconnects do not surface errors. Non-admin
// callers may only close their own sessions.
func (s *SessionService) Terminate(ctx context.Context, actorID string, isAdmin bool, sessionID string) (*model.Session, error) {
	sid, err := uuid.Parse(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, ErrInvalidSessionInput
	}

	session, err := s.sessionRepo.FindByID(ctx, sid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if !isAdmin {
		actor, err := uuid.Parse(strings.TrimSpace(actorID))
		if err != nil || actor != session.UserID {
			return nil, ErrSessionForbidden
		}
	}

	now := time.Now().UTC()
	closed, err := s.sessionRepo.Terminate(ctx, sid, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		// Already terminated, possibly by the stale sweep or a racing
		// disconnect. Return the terminal state as-is.
		return s.sessionRepo.FindByID(ctx, sid)
	}

	metrics.IncSessionTerminated("user")
	s.refreshActiveGauge(ctx)
	s.writeAudit(ctx, &session.UserID, "session_terminate",
		fmt.Sprintf("Session %s terminated", sid))

	return s.sessionRepo.FindByID(ctx, sid)
}

func (s *SessionService) ListActive(ctx context.Context) ([]*model.SessionDetail, error) {
	return s.sessionRepo.ListActive(ctx)
}

func (s *SessionService) CountActive(ctx context.Context) (int64, error) {
	return s.sessionRepo.CountActive(ctx)
}

// SweepStale force-terminates sessions that have been active longer than
// maxAge. Run from the scheduler.
func (s *SessionService) SweepStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, ErrInvalidSessionInput
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	closed, err := s.sessionRepo.TerminateStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if closed > 0 {
		for i := int64(0); i < closed; i++ {
			metrics.IncSessionTerminated("stale")
		}
		s.logger.Info("stale sessions terminated",
			zap.Int64("count", closed),
			zap.Time("cutoff", cutoff))
	}
	s.refreshActiveGauge(ctx)

	return closed, nil
}

func (s *SessionService) refreshActiveGauge(ctx context.Context) {
	count, err := s.sessionRepo.CountActive(ctx)
	if err != nil {
		s.logger.Warn("count active sessions failed", zap.Error(err))
		return
	}
	metrics.SetActiveSessions(count)
}

func (s *SessionService) writeAudit(ctx context.Context, userID *uuid.UUID, action, details string) {
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
