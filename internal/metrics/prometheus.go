package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VoucherRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotspot_voucher_redemptions_total",
		Help: "Voucher redemption attempts by result",
	}, []string{"result"})

	VouchersGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotspot_vouchers_generated_total",
		Help: "Total vouchers generated",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotspot_active_sessions",
		Help: "Current number of active network sessions",
	})

	SessionsTerminated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotspot_sessions_terminated_total",
		Help: "Terminated sessions by cause",
	}, []string{"cause"})

	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotspot_payments_total",
		Help: "Completed payments by method",
	}, []string{"method"})

	RevenueTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotspot_revenue_total",
		Help: "Revenue recorded, by payment method",
	}, []string{"method"})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotspot_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})
)

func IncVoucherRedemption(result string) {
	label := strings.TrimSpace(result)
	if label == "" {
		label = "unknown"
	}
	VoucherRedemptions.WithLabelValues(label).Inc()
}

func AddVouchersGenerated(count int) {
	if count > 0 {
		VouchersGenerated.Add(float64(count))
	}
}

func SetActiveSessions(count int64) {
	if count < 0 {
		count = 0
	}
	ActiveSessions.Set(float64(count))
}

func IncSessionTerminated(cause string) {
	label := strings.TrimSpace(cause)
	if label == "" {
		label = "unknown"
	}
	SessionsTerminated.WithLabelValues(label).Inc()
}

func RecordPayment(method string, amount float64) {
	label := strings.TrimSpace(method)
	if label == "" {
		label = "unknown"
	}
	PaymentsTotal.WithLabelValues(label).Inc()
	if amount > 0 {
		RevenueTotal.WithLabelValues(label).Add(amount)
	}
}

func IncLoginAttempt(outcome string) {
	label := strings.TrimSpace(outcome)
	if label == "" {
		label = "unknown"
	}
	LoginAttempts.WithLabelValues(label).Inc()
}
