package telemetry

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in       string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tc.in, got, tc.expected)
		}
	}
}

func TestDisabledMetricsAreNoops(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	if m.Registry() != nil {
		t.Errorf("disabled metrics should carry no registry")
	}
	// Must not panic.
	m.ObserveGather("packages.test", "ok", time.Second)
	m.ObserveRender("packages.test", "ok", 3)
}

func TestEnabledMetricsRegister(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, Namespace: "rsdtest"})
	if m.Registry() == nil {
		t.Fatalf("expected a registry")
	}
	m.ObserveGather("packages.test", "ok", 10*time.Millisecond)
	m.ObserveRender("packages.test", "ok", 2)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Errorf("expected recorded metric families")
	}
}

func TestInitTracerDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracer(TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := shutdown(t.Context()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}
