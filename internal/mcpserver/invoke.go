package mcpserver

import (
	"context"
	"encoding/json"
	"log"

	"mcpcalc/internal/calculator"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// invoker is shared by the runtime adapters: it runs one tool call through
// the dispatcher inside a span and logs the outcome.
type invoker struct {
	dispatcher *calculator.Dispatcher
	runtime    string
	tracer     trace.Tracer
}

func newInvoker(d *calculator.Dispatcher, opts Options) invoker {
	return invoker{dispatcher: d, runtime: opts.Runtime, tracer: opts.Tracer}
}

func (inv invoker) invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	_, span := inv.tracer.Start(ctx, "tools/call "+name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("mcp.tool.name", name),
			attribute.String("mcp.runtime", inv.runtime),
		))
	defer span.End()

	text, err := inv.dispatcher.Invoke(name, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("tools/call '%s' failed: %v", name, err)
		return "", err
	}

	span.SetAttributes(attribute.String("mcp.tool.result", text))
	log.Printf("tools/call '%s' %s = %s", name, args, text)
	return text, nil
}
