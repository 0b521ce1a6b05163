package dynacrud

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SlowThreshold is the duration above which a successful operation is logged as a
// warning.
const SlowThreshold = time.Second

const instrumentationName = "github.com/nisimpson/dynacrud"

// observe runs fn inside a span, records metrics and logs the outcome. Every
// exported operation of Service goes through observe.
func observe[T any](ctx context.Context, s *Service, op, table string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "dynacrud."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "dynamodb"),
			attribute.String("db.operation.name", op),
			attribute.String("db.collection.name", table),
		),
	)
	defer span.End()

	start := s.tick()
	result, err := fn(ctx)
	duration := s.tick().Sub(start)

	status := statusOf(err)
	s.metrics.Operations.WithLabelValues(op, table, status).Inc()
	s.metrics.Duration.WithLabelValues(op, table).Observe(duration.Seconds())

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("table", table),
		zap.Duration("duration", duration),
	}

	var apiErr smithy.APIError
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		if duration > SlowThreshold {
			s.logger.Warn("slow operation completed", fields...)
		} else {
			s.logger.Debug("operation completed", fields...)
		}
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrBadRequest):
		// expected outcomes, recorded on the span without marking it failed
		span.SetAttributes(attribute.String("dynacrud.status", status))
		s.logger.Debug("operation rejected", append(fields, zap.Error(err))...)
	case errors.As(err, &apiErr):
		span.RecordError(err)
		span.SetStatus(codes.Error, apiErr.ErrorCode())
		s.logger.Error("operation failed", append(fields,
			zap.String("error_code", apiErr.ErrorCode()),
			zap.Error(err),
		)...)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("operation failed", append(fields, zap.Error(err))...)
	}

	return result, err
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "error"
	}
}
