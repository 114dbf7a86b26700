package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

type AuditService struct {
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuditService{auditRepo: auditRepo, logger: logger}
}

// Record writes one audit row. Failures are logged and swallowed; audit
// must never fail the operation it describes.
func (s *AuditService) Record(ctx context.Context, userID *uuid.UUID, action string, details, ipAddress *string) {
	if action == "" {
		return
	}

	if err := s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: ipAddress,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("write audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *AuditService) List(ctx context.Context, filter repository.AuditListFilter) ([]*model.AuditLog, error) {
	return s.auditRepo.List(ctx, filter)
}
