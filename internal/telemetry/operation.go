// Package telemetry models multi-step cluster operations as trace spans so
// UIs and collectors can observe progress uniformly.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// StepTitleKey carries the human readable title of a step span.
	StepTitleKey = "pgherd.step.title"
	// StepCountKey on the operation span announces how many steps follow.
	StepCountKey = "pgherd.step.count"

	defaultOperationID = "operation"
)

// Operation is one in-flight cluster operation: a root span plus one child
// span per executed step.
type Operation struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

// Start opens the root span for an operation expected to run steps steps.
func Start(ctx context.Context, tracer trace.Tracer, operation string, steps int) (*Operation, error) {
	if tracer == nil {
		return nil, fmt.Errorf("start operation: tracer is required")
	}

	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = defaultOperationID
	}

	spanCtx, span := tracer.Start(ctx, operation, trace.WithAttributes(
		attribute.Int(StepCountKey, steps),
	))
	return &Operation{ctx: spanCtx, tracer: tracer, span: span}, nil
}

// Context returns the context carrying the operation's root span.
func (o *Operation) Context() context.Context {
	if o == nil {
		return context.Background()
	}
	return o.ctx
}

// RunStep executes fn inside a child span named id. The step error, if any,
// is recorded on the span and returned unchanged.
func (o *Operation) RunStep(ctx context.Context, id, title string, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}

	stepID := strings.TrimSpace(id)
	if stepID == "" {
		return fmt.Errorf("run step: step id is required")
	}
	if o == nil || o.tracer == nil {
		return fn(ctx)
	}
	if ctx == nil {
		ctx = o.ctx
	}

	stepCtx, span := o.tracer.Start(ctx, stepID, trace.WithAttributes(
		attribute.String(StepTitleKey, title),
	))
	defer span.End()

	err := fn(stepCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
		return err
	}
	return nil
}

// End closes the operation span, recording err when the operation failed.
func (o *Operation) End(err error) {
	if o == nil || o.span == nil {
		return
	}
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	o.span.End()
}
