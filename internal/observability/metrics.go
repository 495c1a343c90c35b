// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ghostpool/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	PositionsOpened   prometheus.Counter
	PositionsClosed   *prometheus.CounterVec
	StakeDeposited    prometheus.Counter
	RewardsClaimed    prometheus.Counter
	TotalValueLocked  *prometheus.GaugeVec
	AlivePositions    *prometheus.GaugeVec

	// Scan metrics
	ScansExecuted    *prometheus.CounterVec
	DeathSubmissions *prometheus.CounterVec
	DeadValue        *prometheus.CounterVec

	// Cascade metrics
	ValueCascaded *prometheus.CounterVec

	// Reset metrics
	ResetsFired    prometheus.Counter
	JackpotsPaid   prometheus.Counter
	ResetDeadline  prometheus.Gauge

	// Boost metrics
	BoostsApplied *prometheus.CounterVec

	// API metrics
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
	WSSubscribers   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ghostpool"
	}

	return &Metrics{
		// Ledger metrics
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "positions_opened_total",
			Help:      "Total number of positions opened",
		}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "positions_closed_total",
			Help:      "Total number of positions closed by cause",
		}, []string{"cause"}),
		StakeDeposited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "stake_deposited_total",
			Help:      "Total stake deposited (open plus add)",
		}),
		RewardsClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rewards_claimed_total",
			Help:      "Total rewards paid out to claimers",
		}),
		TotalValueLocked: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_value_locked",
			Help:      "Staked value by level",
		}, []string{"level"}),
		AlivePositions: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "alive_positions",
			Help:      "Alive position count by level",
		}, []string{"level"}),

		// Scan metrics
		ScansExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "executed_total",
			Help:      "Total number of scans executed by level",
		}, []string{"level"}),
		DeathSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "death_submissions_total",
			Help:      "Total accepted death submission batches by level",
		}, []string{"level"}),
		DeadValue: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "dead_value_total",
			Help:      "Total forfeited stake by level",
		}, []string{"level"}),

		// Cascade metrics
		ValueCascaded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "value_total",
			Help:      "Total value redistributed through death cascades by source level",
		}, []string{"level"}),

		// Reset metrics
		ResetsFired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reset",
			Name:      "fired_total",
			Help:      "Total number of system resets fired",
		}),
		JackpotsPaid: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reset",
			Name:      "jackpot_paid_total",
			Help:      "Total jackpot value paid to last depositors",
		}),
		ResetDeadline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reset",
			Name:      "deadline_timestamp_ms",
			Help:      "Current reset deadline as unix milliseconds",
		}),

		// Boost metrics
		BoostsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boost",
			Name:      "applied_total",
			Help:      "Total boosts applied by kind",
		}, []string{"kind"}),

		// API metrics
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		RequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_errors_total",
			Help:      "Total HTTP request errors by endpoint",
		}, []string{"endpoint"}),
		WSSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_subscribers",
			Help:      "Current number of websocket event subscribers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEvent updates counters from one settlement event. Wired as (part
// of) the engine's event sink.
func (m *Metrics) ObserveEvent(ev domain.Event) {
	level := strconv.Itoa(ev.Level)
	switch ev.Kind {
	case domain.EventPositionOpened:
		m.PositionsOpened.Inc()
		m.StakeDeposited.Add(float64(ev.Amount))
	case domain.EventStakeAdded:
		m.StakeDeposited.Add(float64(ev.Amount))
	case domain.EventPositionClosed:
		m.PositionsClosed.WithLabelValues("extract").Inc()
	case domain.EventEmergencyExit:
		m.PositionsClosed.WithLabelValues("emergency").Inc()
	case domain.EventPositionCulled:
		m.PositionsClosed.WithLabelValues("cull").Inc()
	case domain.EventRewardsClaimed:
		m.RewardsClaimed.Add(float64(ev.Amount))
	case domain.EventScanExecuted:
		m.ScansExecuted.WithLabelValues(level).Inc()
	case domain.EventDeathsRecorded:
		m.DeathSubmissions.WithLabelValues(level).Inc()
	case domain.EventScanFinalized:
		m.DeadValue.WithLabelValues(level).Add(float64(ev.Amount))
	case domain.EventCascade:
		m.ValueCascaded.WithLabelValues(level).Add(float64(ev.Amount))
	case domain.EventSystemReset:
		m.ResetsFired.Inc()
		m.JackpotsPaid.Add(float64(ev.Amount))
	case domain.EventBoostApplied:
		m.BoostsApplied.WithLabelValues("grant").Inc()
	}
}
