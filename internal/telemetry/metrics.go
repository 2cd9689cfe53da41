package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы анализа для метки outcome.
const (
	OutcomeSucceeded  = "succeeded"
	OutcomeValidation = "validation_error"
	OutcomeCycle      = "cycle"
	OutcomeError      = "error"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "critpath_analyses_total",
		Help: "Total CPM analyses by outcome",
	}, []string{"outcome"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "critpath_analysis_duration_seconds",
		Help:    "Time spent computing a CPM schedule",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	analysisTasks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "critpath_analysis_tasks",
		Help:    "Number of tasks per analysis",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "critpath_http_requests_total",
		Help: "Total HTTP requests handled by critpath API",
	}, []string{"method", "status"})

	mqDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "critpath_mq_deliveries_total",
		Help: "Broker deliveries by queue and settlement",
	}, []string{"queue", "settlement"})

	mqReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "critpath_mq_reconnects_total",
		Help: "Successful reconnects to RabbitMQ",
	})

	mqConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "critpath_mq_connected",
		Help: "1 while the RabbitMQ connection is open",
	})
)

// ObserveAnalysis записывает метрики одного анализа.
func ObserveAnalysis(outcome string, tasks int, elapsed time.Duration) {
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(elapsed.Seconds())
	analysisTasks.Observe(float64(tasks))
}

// ObserveHTTPRequest записывает метрику HTTP-запроса.
func ObserveHTTPRequest(method string, status int) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// AnalysisOutcome переводит вид ошибки движка в метку outcome.
func AnalysisOutcome(kind string, err error) string {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case kind == "validation":
		return OutcomeValidation
	case kind == "cycle":
		return OutcomeCycle
	default:
		return OutcomeError
	}
}

// ObserveDelivery считает обработанное сообщение: ack, requeue или dead_letter.
func ObserveDelivery(queue, settlement string) {
	mqDeliveriesTotal.WithLabelValues(queue, settlement).Inc()
}

// ObserveReconnect считает успешное переподключение к брокеру.
func ObserveReconnect() {
	mqReconnectsTotal.Inc()
}

// SetBrokerConnected выставляет critpath_mq_connected.
func SetBrokerConnected(connected bool) {
	if connected {
		mqConnected.Set(1)
		return
	}
	mqConnected.Set(0)
}
