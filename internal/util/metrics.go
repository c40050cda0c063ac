package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BillsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_bills_created_total",
		Help: "Total number of bills created",
	})

	BillsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_bills_rejected_total",
		Help: "Total number of bill creations rejected",
	}, []string{"reason"})

	BillRevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_bill_revenue_total",
		Help: "Gross revenue of created bills",
	})

	LineRefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_line_refunds_total",
		Help: "Total number of partial line refunds",
	})

	RefundedAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_refunded_amount_total",
		Help: "Total amount refunded on bill lines",
	})

	RefundsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_refunds_failed_total",
		Help: "Total number of rejected refunds",
	}, []string{"reason"})

	StatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_bill_status_changes_total",
		Help: "Total number of bill status changes",
	}, []string{"to"})

	ReportCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_report_cache_hits_total",
		Help: "Report cache lookups by result",
	}, []string{"report", "result"})

	ReportLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_report_latency_seconds",
		Help:    "Latency of report generation",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
