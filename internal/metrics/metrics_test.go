package metrics

import (
	"testing"
)

func TestNew_GathersMetrics(t *testing.T) {
	m := New()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	// Should include at least Go runtime and process collectors.
	if len(families) == 0 {
		t.Fatal("expected non-empty metric families from Gather()")
	}

	m.RequestsTotal.WithLabelValues("GET", "200", "/proxy").Inc()

	families, err = m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "lab_proxy_http_requests_total" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected lab_proxy_http_requests_total in gathered metrics")
	}
}

func TestObserveOutcome(t *testing.T) {
	m := New()
	m.ObserveOutcome(OutcomeForbidden)
	m.ObserveOutcome(OutcomeForbidden)
	m.ObserveOutcome(OutcomeRelayed)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	got := make(map[string]float64)
	for _, f := range families {
		if f.GetName() != "lab_proxy_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "outcome" {
					got[lp.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}

	if got[OutcomeForbidden] != 2 {
		t.Errorf("forbidden = %v, want 2", got[OutcomeForbidden])
	}
	if got[OutcomeRelayed] != 1 {
		t.Errorf("relayed = %v, want 1", got[OutcomeRelayed])
	}
}

func TestObserveOutcome_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOutcome(OutcomeError) // must not panic
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"PUT", "PUT"},
		{"DELETE", "DELETE"},
		{"PATCH", "PATCH"},
		{"HEAD", "HEAD"},
		{"OPTIONS", "OPTIONS"},
		{"FOOBAR", "other"},
		{"get", "other"},
		{"X-CUSTOM", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := NormalizeMethod(tt.method)
			if got != tt.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/proxy", "/proxy"},
		{"/proxy/status", "/proxy/status"},
		{"/proxy/other", "/proxy"},
		{"/proxyx", "other"},
		{"/healthz", "/healthz"},
		{"/metrics", "/metrics"},
		{"/unknown", "other"},
		{"/", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := NormalizePath(tt.path)
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
