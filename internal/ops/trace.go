package ops

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Spans go to the global tracer provider, a no-op unless the binary installs one.
var tracer = otel.Tracer("github.com/dailyaf/vaultcap/internal/ops")

func startSpan(ctx context.Context, action, capsuleID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "capsule."+action,
		trace.WithAttributes(
			attribute.String("capsule.id", capsuleID),
			attribute.String("capsule.action", action),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
