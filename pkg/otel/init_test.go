package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func attrMap(kvs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

func TestServiceAttributesFromConfig(t *testing.T) {
	got := attrMap(ServiceAttributes(Config{
		ServiceName:    "attendify",
		Component:      "worker",
		Namespace:      "hr",
		ServiceVersion: "2.3.0",
		Environment:    "production",
	}))

	want := map[string]string{
		"service.name":           "attendify",
		"service.namespace":      "hr",
		"service.version":        "2.3.0",
		"deployment.environment": "production",
		"service.component":      "worker",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{ServiceName: "attendify", SampleRatio: 0, OTLPEndpoint: "http://collector:4317"}.withDefaults()

	if cfg.Namespace != "attendify" {
		t.Fatalf("namespace should fall back to service name, got %q", cfg.Namespace)
	}
	if cfg.Environment != "development" || cfg.SampleRatio != 1 {
		t.Fatalf("development should sample everything, got %s %v", cfg.Environment, cfg.SampleRatio)
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Fatalf("endpoint = %q", cfg.OTLPEndpoint)
	}

	prod := Config{ServiceName: "attendify", Environment: "production"}.withDefaults()
	if prod.SampleRatio != 0.1 {
		t.Fatalf("production default ratio = %v", prod.SampleRatio)
	}
	if _, ok := attrMap(ServiceAttributes(prod))["service.component"]; ok {
		t.Fatalf("component attribute should be omitted when empty")
	}
}

func TestTrimScheme(t *testing.T) {
	cases := map[string]string{
		"https://otel.local:4317": "otel.local:4317",
		"localhost:4317":          "localhost:4317",
		"":                        "",
	}
	for in, want := range cases {
		if got := trimScheme(in); got != want {
			t.Fatalf("trimScheme(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := InitOpenTelemetry(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without service name")
	}
}
