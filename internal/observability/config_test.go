package observability

import (
	"testing"

	"github.com/smallbiznis/gamepasses/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")

	cfg := LoadConfig(config.Config{AppName: " ", Environment: "production", AppVersion: "1.0"})

	assert.Equal(t, "roproxy-gamepasses", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigEndpointEnablesExport(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")

	cfg := LoadConfig(config.Config{OTLPEndpoint: " collector:4317 "})
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)

	t.Setenv("OTEL_ENABLED", "false")
	cfg = LoadConfig(config.Config{OTLPEndpoint: "collector:4317"})
	assert.False(t, cfg.OtelEnabled)
}

func TestLoadConfigExporterProtocol(t *testing.T) {
	cases := map[string]string{
		"":              "grpc",
		"grpc":          "grpc",
		"HTTP":          "http",
		"http/protobuf": "http",
		"thrift":        "grpc",
	}
	for raw, want := range cases {
		t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", raw)
		assert.Equal(t, want, LoadConfig(config.Config{}).OtelExporterProtocol, raw)
	}
}

func TestDebugFollowsEnvironment(t *testing.T) {
	assert.True(t, Config{Environment: "development"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "debug"}.Debug())
	assert.False(t, Config{Environment: "staging"}.Debug())
}
