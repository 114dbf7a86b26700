package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Logendranm/wifi-hotspot-system-pro/pkg/format"
)

var ErrUnknownReportType = errors.New("unknown report type")

const (
	ReportTypeUsers    = "users"
	ReportTypePayments = "payments"
	ReportTypeSessions = "sessions"
	ReportTypeVouchers = "vouchers"
)

// Report is a rendered CSV export.
type Report struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ReportService struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewReportService(pool *pgxpool.Pool, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReportService{pool: pool, logger: logger}
}

// Export renders the named report as CSV. The filename embeds the export
// timestamp so repeated downloads never collide.
func (s *ReportService) Export(ctx context.Context, reportType string) (*Report, error) {
	var rows [][]string
	var err error

	switch reportType {
	case ReportTypeUsers:
		rows, err = s.userRows(ctx)
	case ReportTypePayments:
		rows, err = s.paymentRows(ctx)
	case ReportTypeSessions:
		rows, err = s.sessionRows(ctx)
	case ReportTypeVouchers:
		rows, err = s.voucherRows(ctx)
	default:
		return nil, ErrUnknownReportType
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}

	return &Report{
		Filename:    fmt.Sprintf("%s_report_%s.csv", reportType, time.Now().UTC().Format("20060102_150405")),
		ContentType: "text/csv",
		Data:        buf.Bytes(),
	}, nil
}

func (s *ReportService) userRows(ctx context.Context) ([][]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, email, phone, status, data_balance, time_balance, created_at
		FROM users
		WHERE role = 'user'
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := [][]string{{"id", "username", "email", "phone", "status", "data_balance", "time_balance", "created_at"}}
	for rows.Next() {
		var id uuid.UUID
		var username, email, status string
		var phone *string
		var dataBalance, timeBalance int64
		var createdAt time.Time
		if err := rows.Scan(&id, &username, &email, &phone, &status, &dataBalance, &timeBalance, &createdAt); err != nil {
			return nil, err
		}

		phoneValue := ""
		if phone != nil {
			phoneValue = *phone
		}
		out = append(out, []string{
			id.String(),
			username,
			email,
			phoneValue,
			status,
			strconv.FormatInt(dataBalance, 10),
			strconv.FormatInt(timeBalance, 10),
			createdAt.Format(time.RFC3339),
		})
	}
	return out, rows.Err()
}

func (s *ReportService) paymentRows(ctx context.Context) ([][]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.created_at, u.username, COALESCE(pl.name, ''), p.amount, p.payment_method, p.status
		FROM payments p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN plans pl ON pl.id = p.plan_id
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := [][]string{{"date", "username", "plan", "amount", "method", "status"}}
	for rows.Next() {
		var createdAt time.Time
		var username, planName, method, status string
		var amount float64
		if err := rows.Scan(&createdAt, &username, &planName, &amount, &method, &status); err != nil {
			return nil, err
		}
		out = append(out, []string{
			createdAt.Format(time.RFC3339),
			username,
			planName,
			strconv.FormatFloat(amount, 'f', 2, 64),
			method,
			status,
		})
	}
	return out, rows.Err()
}

func (s *ReportService) sessionRows(ctx context.Context) ([][]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.username, s.device_mac, s.ip_address, s.start_time, s.end_time, s.status, s.data_used, s.time_used
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		ORDER BY s.start_time DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := [][]string{{"username", "device_mac", "ip_address", "start_time", "end_time", "status", "data_used", "time_used"}}
	for rows.Next() {
		var username, deviceMAC, ipAddress, status string
		var startTime time.Time
		var endTime *time.Time
		var dataUsed, timeUsed int64
		if err := rows.Scan(&username, &deviceMAC, &ipAddress, &startTime, &endTime, &status, &dataUsed, &timeUsed); err != nil {
			return nil, err
		}

		end := ""
		if endTime != nil {
			end = endTime.Format(time.RFC3339)
		}
		out = append(out, []string{
			username,
			deviceMAC,
			ipAddress,
			startTime.Format(time.RFC3339),
			end,
			status,
			format.DataSizeMB(dataUsed),
			format.TimeDuration(timeUsed),
		})
	}
	return out, rows.Err()
}

func (s *ReportService) voucherRows(ctx context.Context) ([][]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT v.code, pl.name, v.status, COALESCE(u.username, ''), v.used_at, v.created_at
		FROM vouchers v
		JOIN plans pl ON pl.id = v.plan_id
		LEFT JOIN users u ON u.id = v.user_id
		ORDER BY v.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := [][]string{{"code", "plan", "status", "redeemed_by", "used_at", "created_at"}}
	for rows.Next() {
		var code, planName, status, username string
		var usedAt *time.Time
		var createdAt time.Time
		if err := rows.Scan(&code, &planName, &status, &username, &usedAt, &createdAt); err != nil {
			return nil, err
		}

		used := ""
		if usedAt != nil {
			used = usedAt.Format(time.RFC3339)
		}
		out = append(out, []string{code, planName, status, username, used, createdAt.Format(time.RFC3339)})
	}
	return out, rows.Err()
}
