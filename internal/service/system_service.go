package service

import (
	"context"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/pkg/logger"
)

// DashboardStats is the admin landing-page summary.
type DashboardStats struct {
	TotalUsers       int64               `json:"total_users"`
	ActiveUsers      int64               `json:"active_users"`
	ActiveSessions   int64               `json:"active_sessions"`
	ActivePlans      int64               `json:"active_plans"`
	UnusedVouchers   int64               `json:"unused_vouchers"`
	UsedVouchers     int64               `json:"used_vouchers"`
	Revenue          *model.RevenueStats `json:"revenue"`
	RevenueToday     float64             `json:"revenue_today"`
	SessionsToday    int64               `json:"sessions_today"`
	RedemptionsToday int64               `json:"redemptions_today"`
}

// ServerStats reports host health for the admin status page.
type ServerStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemPercent    float64 `json:"mem_percent"`
	MemTotalBytes uint64  `json:"mem_total_bytes"`
	MemUsedBytes  uint64  `json:"mem_used_bytes"`
	DiskPercent   float64 `json:"disk_percent"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
}

type SystemService struct {
	pool     *pgxpool.Pool
	logStore *logger.SystemLogStore
	logger   *zap.Logger
}

func NewSystemService(pool *pgxpool.Pool, logStore *logger.SystemLogStore, log *zap.Logger) *SystemService {
	if log == nil {
		log = zap.NewNop()
	}

	return &SystemService{pool: pool, logStore: logStore, logger: log}
}

func (s *SystemService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{Revenue: &model.RevenueStats{}}

	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE status = 'active'),
			(SELECT COUNT(*) FROM sessions WHERE status = 'active'),
			(SELECT COUNT(*) FROM plans WHERE status = 'active'),
			(SELECT COUNT(*) FROM vouchers WHERE status = 'unused'),
			(SELECT COUNT(*) FROM vouchers WHERE status = 'used'),
			(SELECT COUNT(*) FROM payments WHERE status = 'completed'),
			(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'completed'),
			(SELECT COALESCE(AVG(amount), 0) FROM payments WHERE status = 'completed'),
			(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'completed' AND created_at >= CURRENT_DATE),
			(SELECT COUNT(*) FROM sessions WHERE start_time >= CURRENT_DATE),
			(SELECT COUNT(*) FROM vouchers WHERE used_at >= CURRENT_DATE)
	`
	if err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.ActiveSessions,
		&stats.ActivePlans,
		&stats.UnusedVouchers,
		&stats.UsedVouchers,
		&stats.Revenue.TotalTransactions,
		&stats.Revenue.TotalRevenue,
		&stats.Revenue.AvgTransaction,
		&stats.RevenueToday,
		&stats.SessionsToday,
		&stats.RedemptionsToday,
	); err != nil {
		return nil, err
	}

	return stats, nil
}

// Server samples host metrics. Each gauge degrades to zero on collector
// failure rather than failing the whole status page.
func (s *SystemService) Server(ctx context.Context) *ServerStats {
	stats := &ServerStats{Goroutines: runtime.NumGoroutine()}

	if values, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(values) > 0 {
		stats.CPUPercent = values[0]
	} else if err != nil {
		s.logger.Warn("cpu sample failed", zap.Error(err))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemPercent = vm.UsedPercent
		stats.MemTotalBytes = vm.Total
		stats.MemUsedBytes = vm.Used
	} else {
		s.logger.Warn("memory sample failed", zap.Error(err))
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		stats.DiskPercent = du.UsedPercent
	} else {
		s.logger.Warn("disk sample failed", zap.Error(err))
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		stats.UptimeSeconds = uptime
	} else {
		s.logger.Warn("uptime sample failed", zap.Error(err))
	}

	return stats
}

// RecentLogs returns the newest in-memory application log entries.
func (s *SystemService) RecentLogs(limit int) []logger.SystemLogEntry {
	if s.logStore == nil {
		return nil
	}
	return s.logStore.Recent(limit)
}
