package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/adminauth"
)

type fakeSource struct {
	snapshot adminauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() adminauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: adminauth.MetricsSnapshot{
			Counters:   map[adminauth.MetricID]uint64{},
			Histograms: map[adminauth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: adminauth.MetricsSnapshot{
			Counters: map[adminauth.MetricID]uint64{
				adminauth.MetricLoginSuccess:     7,
				adminauth.MetricLockoutTriggered: 1,
			},
			Histograms: map[adminauth.MetricID][]uint64{
				adminauth.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"adminauth_login_success_total 7",
		"adminauth_lockout_triggered_total 1",
		"adminauth_login_failure_total 0",
		`adminauth_request_latency_seconds_bucket{le="0.005"} 1`,
		`adminauth_request_latency_seconds_bucket{le="+Inf"} 36`,
		"adminauth_request_latency_seconds_count 36",
		"adminauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderOmitsHistogramWhenDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: adminauth.MetricsSnapshot{
			Counters:   map[adminauth.MetricID]uint64{adminauth.MetricLogout: 1},
			Histograms: map[adminauth.MetricID][]uint64{},
		},
	})
	if out := exp.Render(); strings.Contains(out, latencyName) {
		t.Fatalf("histogram rendered while disabled:\n%s", out)
	}
}

func TestRenderFromClient(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(backend.Close)

	cfg := adminauth.DefaultConfig()
	cfg.Transport.BaseURL = backend.URL
	cfg.Metrics.Enabled = true
	client, err := adminauth.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	client.Logout(t.Context())

	out := NewExporter(client).Render()
	if !strings.Contains(out, "adminauth_logout_total 1") {
		t.Fatalf("expected logout counter, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: adminauth.MetricsSnapshot{
			Counters:   map[adminauth.MetricID]uint64{adminauth.MetricLoginSuccess: 1},
			Histograms: map[adminauth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporter(fakeSource{
		snapshot: adminauth.MetricsSnapshot{
			Counters: map[adminauth.MetricID]uint64{
				adminauth.MetricLoginSuccess:       1000,
				adminauth.MetricLoginFailure:       40,
				adminauth.MetricSessionInvalidated: 20,
			},
			Histograms: map[adminauth.MetricID][]uint64{
				adminauth.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
