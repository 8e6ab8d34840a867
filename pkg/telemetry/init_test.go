package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_ExportsSpans(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	var buf bytes.Buffer
	ctx := context.Background()

	shutdown, err := initWithWriter(ctx, "topoweak-test", "dev", "", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(ctx, "Manager.WeakNodes")
	span.End()

	require.NoError(t, shutdown(ctx))
	assert.Contains(t, buf.String(), "Manager.WeakNodes")
	assert.Contains(t, buf.String(), "topoweak-test")
}

func TestServiceResource_MergesWithSDKDefault(t *testing.T) {
	res, err := serviceResource("topoweak-test", "1.2.3")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "topoweak-test", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Contains(t, attrs, "telemetry.sdk.language")
}

func TestInit_InstallsProvider(t *testing.T) {
	t.Setenv(EndpointEnv, "")
	ctx := context.Background()

	shutdown, err := Init(ctx, "topoweak-test", "dev", "")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
}
