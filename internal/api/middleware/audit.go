package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

var (
	auditRepoMu sync.RWMutex
	auditRepo   repository.AuditRepository
)

func SetAuditRepository(repo repository.AuditRepository) {
	auditRepoMu.Lock()
	defer auditRepoMu.Unlock()
	auditRepo = repo
}

// AuditLog records the action after the handler succeeds. The write runs
// detached with its own timeout so audit latency never extends the
// response.
func AuditLog(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		repo := getAuditRepository()
		if repo == nil {
			c.Next()
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		claims, _ := GetClaims(c)
		userID := parseUserID(claims)
		ipAddress := strPtr(c.ClientIP())
		details := resolveAuditDetails(c)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			_ = repo.Create(ctx, &model.AuditLog{
				UserID:    userID,
				Action:    action,
				Details:   details,
				IPAddress: ipAddress,
				CreatedAt: time.Now().UTC(),
			})
		}()
	}
}

func getAuditRepository() repository.AuditRepository {
	auditRepoMu.RLock()
	defer auditRepoMu.RUnlock()
	return auditRepo
}

func parseUserID(claims *Claims) *uuid.UUID {
	if claims == nil || claims.UserID == "" {
		return nil
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}
	return &id
}

func resolveAuditDetails(c *gin.Context) *string {
	if id := c.Param("id"); id != "" {
		detail := c.Request.Method + " " + c.FullPath() + " id=" + id
		return &detail
	}
	detail := c.Request.Method + " " + c.FullPath()
	return &detail
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
