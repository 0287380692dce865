// Package dispatch answers method calls on the alouette_tts channel.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/alouette-audio/alouette-host/internal/engine"
	"github.com/alouette-audio/alouette-host/internal/hostinfo"
	"github.com/alouette-audio/alouette-host/internal/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// edgeTTSEngine is the catalog name isEdgeTTSAvailable asks about.
const edgeTTSEngine = "edge-tts"

// Recorder persists one dispatched call. Satisfied by calllog.Store;
// a nil Recorder disables auditing.
type Recorder interface {
	Record(ctx context.Context, method, status string, took time.Duration) error
}

type Dispatcher struct {
	catalog  *engine.Catalog
	version  func() string
	recorder Recorder
	logger   *slog.Logger
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

func NewDispatcher(catalog *engine.Catalog, recorder Recorder, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		catalog:  catalog,
		version:  hostinfo.Version,
		recorder: recorder,
		logger:   log.With(slog.String("component", "dispatcher")),
	}
	meter := otel.Meter("github.com/alouette-audio/alouette-host/dispatch")
	if calls, err := meter.Int64Counter("alouette.dispatch.calls",
		metric.WithDescription("Method calls handled")); err == nil {
		d.calls = calls
	} else {
		d.logger.Warn("failed to create call counter", slog.String("error", err.Error()))
	}
	if duration, err := meter.Float64Histogram("alouette.dispatch.duration_seconds",
		metric.WithDescription("Method call handling time")); err == nil {
		d.duration = duration
	} else {
		d.logger.Warn("failed to create duration histogram", slog.String("error", err.Error()))
	}
	return d
}

// Handle answers one method call. Every outcome is a response: the
// three known methods produce StatusOK, anything else
// StatusNotImplemented. A missing engine is an ordinary false or an
// empty list, never an error. Calls carry no state between them.
func (d *Dispatcher) Handle(ctx context.Context, call protocol.MethodCall) protocol.MethodResponse {
	start := time.Now()
	var resp protocol.MethodResponse
	switch ParseMethod(call.Method) {
	case MethodIsEdgeTTSAvailable:
		resp = protocol.OK(d.catalog.Probe(edgeTTSEngine))
	case MethodGetAvailableTTSEngines:
		resp = protocol.OK(d.catalog.Available())
	case MethodGetPlatformVersion:
		resp = protocol.OK(d.version())
	default:
		d.logger.Warn("method not implemented", slog.String("method", call.Method))
		resp = protocol.NotImplemented()
	}
	d.observe(ctx, call.Method, resp.Status, time.Since(start))
	return resp
}

func (d *Dispatcher) observe(ctx context.Context, method, status string, took time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	)
	if d.calls != nil {
		d.calls.Add(ctx, 1, attrs)
	}
	if d.duration != nil {
		d.duration.Record(ctx, took.Seconds(), attrs)
	}
	if d.recorder != nil {
		if err := d.recorder.Record(ctx, method, status, took); err != nil {
			d.logger.Warn("failed to record call", slog.String("error", err.Error()))
		}
	}
}
