// Package telemetry adds OpenTelemetry tracing and metrics to an rpc.Server
// through its dispatch hook.
//
//	srv := rpc.NewServer(contract, dispatcher,
//		rpc.WithHook(telemetry.NewHook(telemetry.DefaultConfig())))
package telemetry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/JayJeyaruban/arrpc/rpc"
)

const (
	instrumentationName = "github.com/JayJeyaruban/arrpc"
	system              = "arrpc"
)

// Config configures the hook.
type Config struct {
	// TracerProvider defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// Propagator extracts the caller's trace context from request metadata.
	// Defaults to otel.GetTextMapPropagator().
	Propagator propagation.TextMapPropagator
	// EnableTracing starts one server span per dispatched call.
	EnableTracing bool
	// EnableMetrics records a request counter and a duration histogram.
	EnableMetrics bool
	// RecordExceptions adds an exception event to failed spans.
	RecordExceptions bool
	// ServiceName is the rpc.service attribute. Defaults to "arrpc".
	ServiceName string
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig enables tracing, metrics and exception recording against
// the global providers.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

type hook struct {
	cfg      Config
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewHook builds a dispatch hook from cfg. Instrument creation failures
// disable the affected metric rather than the hook.
func NewHook(cfg Config) rpc.DispatchHook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = system
	}

	h := &hook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}
	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		h.requests, _ = meter.Int64Counter("rpc.server.requests",
			metric.WithUnit("{request}"),
			metric.WithDescription("Number of dispatched RPC calls"),
		)
		h.duration, _ = meter.Float64Histogram("rpc.server.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of dispatched RPC calls"),
		)
	}
	return h
}

type spanToken struct {
	span  trace.Span
	start time.Time
}

func (h *hook) OnDispatchStart(ctx context.Context, info rpc.DispatchInfo) (context.Context, rpc.HookToken) {
	if len(info.Metadata) > 0 {
		ctx = h.cfg.Propagator.Extract(ctx, carrier(info.Metadata))
	}
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{start: time.Now()}
	}

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", system),
		attribute.String("rpc.service", h.cfg.ServiceName),
		attribute.String("rpc.method", info.Tag),
		attribute.String("rpc.arrpc.request_id", info.RequestID),
	}
	if info.Version != "" {
		attrs = append(attrs, attribute.String("rpc.arrpc.origin_version", info.Version))
	}
	if info.ServerID != "" {
		attrs = append(attrs, attribute.String("rpc.arrpc.server_id", info.ServerID))
	}
	if ua := info.Metadata["User-Agent"]; ua != "" {
		attrs = append(attrs, attribute.String("user_agent.original", ua))
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, system+"/"+info.Tag,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	return ctx, &spanToken{span: span, start: time.Now()}
}

func (h *hook) OnDispatchEnd(ctx context.Context, token rpc.HookToken, info rpc.DispatchInfo, stats rpc.CallStats, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}

	status := "ok"
	if err != nil {
		status = string(rpc.KindOf(err))
	}

	if h.cfg.EnableMetrics {
		attrs := metric.WithAttributes(
			attribute.String("rpc.system", system),
			attribute.String("rpc.service", h.cfg.ServiceName),
			attribute.String("rpc.method", info.Tag),
			attribute.String("status", status),
		)
		if h.requests != nil {
			h.requests.Add(ctx, 1, attrs)
		}
		if h.duration != nil {
			h.duration.Record(ctx, time.Since(st.start).Seconds(), attrs)
		}
	}

	if st.span == nil {
		return
	}
	st.span.SetAttributes(
		attribute.Int64("rpc.arrpc.request_bytes", stats.RequestBytes),
		attribute.Int64("rpc.arrpc.response_bytes", stats.ResponseBytes),
	)
	if err != nil {
		st.span.SetStatus(codes.Error, err.Error())
		if h.cfg.RecordExceptions {
			st.span.RecordError(err)
		}
		st.span.SetAttributes(attribute.String("rpc.arrpc.error_kind", status))
	} else {
		st.span.SetStatus(codes.Ok, "")
	}
	st.span.End()
}

// carrier exposes metadata to propagators, which look up lower-case keys
// such as "traceparent" while HTTP metadata is canonicalized.
func carrier(meta map[string]string) propagation.MapCarrier {
	c := make(propagation.MapCarrier, len(meta))
	for k, v := range meta {
		c[strings.ToLower(k)] = v
	}
	return c
}
