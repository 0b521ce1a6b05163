package dynacrud_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynacrud"
	"github.com/nisimpson/dynacrud/dynamock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type instrumented struct {
	svc     *dynacrud.Service
	spans   *tracetest.SpanRecorder
	logs    *observer.ObservedLogs
	metrics *dynacrud.Metrics
}

func newInstrumented(t *testing.T, client dynacrud.DynamoDBClient, cfg dynacrud.Config, extra ...dynacrud.Option) instrumented {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	core, logs := observer.New(zapcore.DebugLevel)
	metrics, err := dynacrud.NewMetrics("test", prometheus.NewRegistry())
	require.NoError(t, err)

	opts := append(testOptions(t, client),
		dynacrud.WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))),
		dynacrud.WithLogger(zap.New(core)),
		dynacrud.WithMetrics(metrics),
	)
	svc, err := dynacrud.New(context.Background(), cfg, append(opts, extra...)...)
	require.NoError(t, err)

	return instrumented{svc: svc, spans: spans, logs: logs, metrics: metrics}
}

func TestObserveSuccess(t *testing.T) {
	in := newInstrumented(t, dynamock.NewMemoryClient(), testConfig())

	_, err := in.svc.Create(context.Background(), "countries", dynacrud.Attributes{"name": "Canada", "countryCode": "CAN"})
	require.NoError(t, err)

	ended := in.spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "dynacrud.Create", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("db.system", "dynamodb"))
	assert.Contains(t, span.Attributes(), attribute.String("db.operation.name", "Create"))
	assert.Contains(t, span.Attributes(), attribute.String("db.collection.name", "countries"))

	assert.Equal(t, float64(1), testutil.ToFloat64(in.metrics.Operations.WithLabelValues("Create", "countries", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(in.metrics.Duration))

	completed := in.logs.FilterMessage("operation completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, zapcore.DebugLevel, completed[0].Level)
	assert.Equal(t, "Create", completed[0].ContextMap()["operation"])
	assert.Equal(t, "test", completed[0].ContextMap()["service"])

	assert.Equal(t, 1, in.logs.FilterMessage("service ready").Len())
}

func TestObserveRejected(t *testing.T) {
	in := newInstrumented(t, dynamock.NewMemoryClient(), testConfig())

	_, err := in.svc.GetByID(context.Background(), "countries", "atl")
	require.ErrorIs(t, err, dynacrud.ErrNotFound)

	span := in.spans.Ended()[0]
	assert.Equal(t, codes.Unset, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("dynacrud.status", "not_found"))

	assert.Equal(t, float64(1), testutil.ToFloat64(in.metrics.Operations.WithLabelValues("GetByID", "countries", "not_found")))
	assert.Equal(t, 1, in.logs.FilterMessage("operation rejected").Len())
	assert.Equal(t, 0, in.logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestObserveNilRecord(t *testing.T) {
	in := newInstrumented(t, dynamock.NewMemoryClient(), testConfig())

	_, err := in.svc.Update(context.Background(), nil, dynacrud.Attributes{"name": "x"})
	require.ErrorIs(t, err, dynacrud.ErrBadRequest)
	_, err = in.svc.Delete(context.Background(), nil)
	require.ErrorIs(t, err, dynacrud.ErrBadRequest)

	ended := in.spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "dynacrud.Update", ended[0].Name())
	assert.Equal(t, "dynacrud.Delete", ended[1].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("dynacrud.status", "bad_request"))

	assert.Equal(t, float64(1), testutil.ToFloat64(in.metrics.Operations.WithLabelValues("Update", "", "bad_request")))
	assert.Equal(t, float64(1), testutil.ToFloat64(in.metrics.Operations.WithLabelValues("Delete", "", "bad_request")))
	assert.Equal(t, 2, in.logs.FilterMessage("operation rejected").Len())
}

func TestObserveBackendFailure(t *testing.T) {
	mock := dynamock.NewMockClient(t)
	mock.ScanFunc = func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
		return nil, &types.ProvisionedThroughputExceededException{}
	}
	cfg := testConfig()
	cfg.Defaults = dynacrud.Defaults{}
	in := newInstrumented(t, mock, cfg)

	_, err := in.svc.Search(context.Background(), "countries", nil)
	require.Error(t, err)

	span := in.spans.Ended()[0]
	assert.Equal(t, "dynacrud.Search", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "ProvisionedThroughputExceededException", span.Status().Description)
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "exception", span.Events()[0].Name)

	assert.Equal(t, float64(1), testutil.ToFloat64(in.metrics.Operations.WithLabelValues("Search", "countries", "error")))

	failed := in.logs.FilterMessage("operation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Equal(t, "ProvisionedThroughputExceededException", failed[0].ContextMap()["error_code"])
}

func TestObserveSlowOperation(t *testing.T) {
	now := testNow
	clock := func() time.Time {
		now = now.Add(2 * time.Second)
		return now
	}
	in := newInstrumented(t, dynamock.NewMemoryClient(), testConfig(), dynacrud.WithClock(clock))

	_, err := in.svc.Search(context.Background(), "cities", nil)
	require.NoError(t, err)

	slow := in.logs.FilterMessage("slow operation completed").All()
	require.Len(t, slow, 1)
	assert.Equal(t, zapcore.WarnLevel, slow[0].Level)
	assert.Equal(t, 2*time.Second, slow[0].ContextMap()["duration"])
}

func TestNewMetrics(t *testing.T) {
	t.Run("owned registry", func(t *testing.T) {
		m, err := dynacrud.NewMetrics("test", nil)
		require.NoError(t, err)
		require.NotNil(t, m.Registry())

		m.Operations.WithLabelValues("GetByID", "countries", "ok").Inc()
		n, err := testutil.GatherAndCount(m.Registry(), "test_operations_total")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("shared registerer reuses collectors", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		first, err := dynacrud.NewMetrics("test", reg)
		require.NoError(t, err)
		second, err := dynacrud.NewMetrics("test", reg)
		require.NoError(t, err)

		assert.Same(t, first.Operations, second.Operations)
		assert.Same(t, first.Duration, second.Duration)
		assert.Nil(t, first.Registry())
	})

	t.Run("service default", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		assert.NotNil(t, svc.Metrics().Registry())
	})
}
