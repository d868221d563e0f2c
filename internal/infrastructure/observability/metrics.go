package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Счётчик вызовов методов репозитория
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	// Гистограмма времени выполнения запросов
	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	PurchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Total number of purchase attempts",
		},
		[]string{"folder", "status"},
	)

	ItemsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_delivered_total",
			Help: "Total number of items delivered to buyers",
		},
		[]string{"folder"},
	)

	InvoicesCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_credited_total",
			Help: "Total number of paid invoices credited to balances",
		},
	)

	ReconcilerCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_cycles_total",
			Help: "Total number of invoice reconciliation cycles",
		},
		[]string{"status"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(
		RepositoryCalls,
		RepositoryDuration,
		PurchasesTotal,
		ItemsDelivered,
		InvoicesCredited,
		ReconcilerCycles,
	)
}
