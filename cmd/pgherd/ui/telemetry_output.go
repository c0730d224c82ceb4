package ui

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"pgherd/internal/telemetry"
)

// StepTracer returns a tracer whose step spans print progress lines to
// stderr, plus a shutdown func flushing the provider. Cluster operations
// run their steps through this tracer so terminal output and trace data
// stay in lockstep.
func StepTracer() (trace.Tracer, func()) {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&stepPrinter{}))
	shutdown := func() { _ = provider.Shutdown(context.Background()) }
	return provider.Tracer("pgherd/cli"), shutdown
}

type stepPrinter struct{}

func (p *stepPrinter) OnStart(_ context.Context, span sdktrace.ReadWriteSpan) {
	if title := stepTitle(span.Attributes()); title != "" {
		fmt.Fprintln(os.Stderr, InfoMsg("%s", title))
	}
}

func (p *stepPrinter) OnEnd(span sdktrace.ReadOnlySpan) {
	title := stepTitle(span.Attributes())
	if title == "" {
		return
	}
	if span.Status().Code == codes.Error {
		fmt.Fprintln(os.Stderr, ErrorMsg("%s: %s", title, span.Status().Description))
		return
	}
	fmt.Fprintln(os.Stderr, SuccessMsg("%s", title))
}

func (p *stepPrinter) Shutdown(context.Context) error   { return nil }
func (p *stepPrinter) ForceFlush(context.Context) error { return nil }

func stepTitle(attrs []attribute.KeyValue) string {
	for _, attr := range attrs {
		if string(attr.Key) == telemetry.StepTitleKey {
			return attr.Value.AsString()
		}
	}
	return ""
}
