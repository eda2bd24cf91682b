package observe

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder wraps [http.ResponseWriter] to capture the status code
// written by the downstream handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// scrapePaths are hit by Prometheus and the orchestrator several times a
// minute. Spans for them would drown the intake traces, so they are
// measured but neither traced nor logged.
var scrapePaths = map[string]bool{
	"/metrics": true,
	"/healthz": true,
	"/readyz":  true,
}

// Middleware instruments the admin HTTP surface (/cart, the probes, the
// Prometheus scrape): it extracts W3C trace context from the request, opens
// a server span for non-scrape routes, mirrors the trace ID in the
// X-Correlation-ID response header, and records every request into
// [Metrics.HTTPRequestDuration].
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			if scrapePaths[r.URL.Path] {
				next.ServeHTTP(rec, r.WithContext(ctx))
				recordRequest(ctx, m, r, start)
				return
			}

			ctx, span := StartSpan(ctx, "HTTP "+r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			cid := CorrelationID(ctx)
			if cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := recordRequest(ctx, m, r, start)
			span.SetAttributes(semconv.HTTPResponseStatusCode(rec.status))
			slog.LogAttrs(ctx, slog.LevelInfo, "request completed",
				slog.String("trace_id", cid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", duration),
			)
		})
	}
}

// recordRequest records one request into the duration histogram, labelled
// by method and path.
func recordRequest(ctx context.Context, m *Metrics, r *http.Request, start time.Time) time.Duration {
	d := time.Since(start)
	m.HTTPRequestDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("path", r.URL.Path),
		),
	)
	return d
}
