package tasks

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var (
	tasksCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total number of tasks inserted",
		},
	)

	taskStatusUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_status_updates_total",
			Help: "Total number of successful task status updates",
		},
		[]string{"status"},
	)

	taskValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_validation_failures_total",
			Help: "Total number of requests rejected by task validation",
		},
		[]string{"reason"},
	)

	storeQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Duration of task store statements",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"driver", "operation"},
	)
)

func init() {
	prometheus.MustRegister(
		tasksCreatedTotal,
		taskStatusUpdatesTotal,
		taskValidationFailuresTotal,
		storeQueryDuration,
	)
}

var tracer = otel.Tracer("github.com/s1natex/fulla-tasks-api/internal/tasks")

// startQuery opens a client span for one store statement. The returned func
// ends the span and records the statement duration.
func startQuery(ctx context.Context, driver, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", driver),
			attribute.String("db.operation", op),
		),
	)
	return ctx, func(err error) {
		storeQueryDuration.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
