package state

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const stateTracerName = "danqing.state"

// tracedStore 链路追踪存储装饰器
type tracedStore struct {
	Store
	tracer trace.Tracer
}

// NewTracing 创建带链路追踪的存储实例
func NewTracing(s Store) Store {
	return &tracedStore{
		Store:  s,
		tracer: otel.Tracer(stateTracerName),
	}
}

// wrap 包装操作，自动处理 Span
func (t *tracedStore) wrap(ctx context.Context, operation, user string, fn func(ctx context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("state.user", user),
		attribute.String("state.operation", operation),
	)

	start := time.Now()
	err := fn(ctx)
	span.SetAttributes(attribute.Int64("state.duration_ms", time.Since(start).Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (t *tracedStore) Online(ctx context.Context, user, connID string) error {
	return t.wrap(ctx, "state.Online", user, func(ctx context.Context) error {
		return t.Store.Online(ctx, user, connID)
	})
}

func (t *tracedStore) Offline(ctx context.Context, user, connID string) error {
	return t.wrap(ctx, "state.Offline", user, func(ctx context.Context) error {
		return t.Store.Offline(ctx, user, connID)
	})
}

func (t *tracedStore) Interrupt(ctx context.Context, user string, ttl time.Duration) error {
	return t.wrap(ctx, "state.Interrupt", user, func(ctx context.Context) error {
		return t.Store.Interrupt(ctx, user, ttl)
	})
}

func (t *tracedStore) Interrupted(ctx context.Context, user string) (interrupted bool, err error) {
	err = t.wrap(ctx, "state.Interrupted", user, func(ctx context.Context) error {
		interrupted, err = t.Store.Interrupted(ctx, user)
		return err
	})
	return interrupted, err
}

func (t *tracedStore) ClearInterrupt(ctx context.Context, user string) error {
	return t.wrap(ctx, "state.ClearInterrupt", user, func(ctx context.Context) error {
		return t.Store.ClearInterrupt(ctx, user)
	})
}
