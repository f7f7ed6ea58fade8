package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RemindersEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_enqueued_total",
		Help: "Напоминания, поставленные планировщиком в очередь доставки",
	})
	RemindersSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_sent_total",
		Help: "Успешно отправленные напоминания",
	})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})
	ResponsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "task_responses_total",
		Help: "Ответы пользователей по действиям и исходам",
	}, []string{"action", "outcome"})
	ReportsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "daily_reports_sent_total",
		Help: "Отправленные дневные отчёты",
	})
	RolloverDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollover_duration_seconds",
		Help:    "Длительность ночного rollover",
		Buckets: prometheus.DefBuckets,
	})
	ScheduledFirings = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduled_firings",
		Help: "Количество взведённых срабатываний в куче планировщика",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		RemindersEnqueued,
		RemindersSent,
		BotSendErrors,
		ResponsesTotal,
		ReportsSent,
		RolloverDuration,
		ScheduledFirings,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncResponse увеличивает счётчик ответов пользователя.
func IncResponse(action, outcome string) {
	ResponsesTotal.WithLabelValues(action, outcome).Inc()
}
