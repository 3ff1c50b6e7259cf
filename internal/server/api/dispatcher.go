package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownOperation is returned by Call for a name not in the table.
var ErrUnknownOperation = errors.New("unknown operation")

const tracerName = "github.com/dmitrijs2005/accountkeeper/internal/server/api"

type operation struct {
	name string
	run  func(ctx context.Context, raw json.RawMessage) (Envelope, error)
}

// newOperation binds a typed body to a name and a guard. The returned
// operation decodes raw into A, runs the guard, validates A when it knows
// how, and then runs body.
func newOperation[A any](name string, guard Guard, body func(ctx context.Context, args A) (Envelope, error)) operation {
	return operation{
		name: name,
		run: func(ctx context.Context, raw json.RawMessage) (Envelope, error) {
			var args A
			if err := decodeArgs(raw, &args); err != nil {
				return Envelope{}, err
			}
			if err := guard(ctx, args); err != nil {
				return Envelope{}, err
			}
			if v, ok := any(args).(validator); ok {
				if err := v.Validate(); err != nil {
					return Envelope{}, err
				}
			}
			return body(ctx, args)
		},
	}
}

func decodeArgs(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalid("Invalid arguments: %v", err)
	}
	return nil
}

// Dispatcher runs operations by name.
type Dispatcher struct {
	ops    map[string]operation
	logger logging.Logger
	tracer trace.Tracer
}

func newDispatcher(logger logging.Logger, ops ...operation) *Dispatcher {
	d := &Dispatcher{
		ops:    make(map[string]operation, len(ops)),
		logger: logger.With("module", "api"),
		tracer: otel.Tracer(tracerName),
	}
	for _, op := range ops {
		d.ops[op.name] = op
	}
	return d
}

// Names lists the operations in lexical order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.ops))
	for n := range d.ops {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Has reports whether name is a known operation.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.ops[name]
	return ok
}

// Call runs operation name with the JSON-encoded variables. Every outcome of
// a known operation, panics included, is an Envelope; the error is only
// ErrUnknownOperation.
func (d *Dispatcher) Call(ctx context.Context, name string, variables json.RawMessage) (env Envelope, err error) {
	op, ok := d.ops[name]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}

	ctx, span := d.tracer.Start(ctx, "api."+name, trace.WithAttributes(attribute.String("api.operation", name)))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			d.logger.Error(ctx, "operation panicked", "operation", name, "panic", p)
			env = Fail(fmt.Errorf("%w: panic: %v", common.ErrorInternal, p))
		}
		d.finish(ctx, span, name, env)
	}()

	res, opErr := op.run(ctx, variables)
	if opErr != nil {
		d.logFailure(ctx, name, opErr)
		return Fail(opErr), nil
	}
	return res, nil
}

func (d *Dispatcher) logFailure(ctx context.Context, name string, err error) {
	kind := KindOf(err)
	if kind == KindInternal || kind == KindDeliveryFailure {
		d.logger.Error(ctx, "operation failed", "operation", name, "kind", string(kind), "error", err)
		return
	}
	d.logger.Info(ctx, "operation refused", "operation", name, "kind", string(kind), "reason", err.Error())
}

func (d *Dispatcher) finish(_ context.Context, span trace.Span, name string, env Envelope) {
	span.SetAttributes(attribute.Bool("api.success", env.Success))
	if !env.Success {
		span.SetAttributes(attribute.String("api.kind", string(env.Kind)))
		if env.Kind == KindInternal {
			span.SetStatus(otelcodes.Error, name+" failed")
		}
	}
}
