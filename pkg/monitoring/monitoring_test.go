package monitoring

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/giongto35/retrorun/pkg/config"
	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.BatteryWrites.Inc()
	m.SaveErrors.WithLabelValues("flush").Inc()
	m.WatchLoop(func() int64 { return 42 }, func() int64 { return 3 })

	if got := testutil.ToFloat64(m.BatteryWrites); got != 1 {
		t.Errorf("battery writes = %v", got)
	}
	if got := testutil.ToFloat64(m.SaveErrors.WithLabelValues("flush")); got != 1 {
		t.Errorf("flush errors = %v", got)
	}

	srv := httptest.NewServer(New(config.Monitoring{MetricEnabled: true, URLPrefix: "/rr"}, m.Registry, logger.Nop()).Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/rr/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"retrorun_ticks_total 42", "retrorun_late_ticks_total 3", `retrorun_save_errors_total{op="flush"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("no %q in the metrics", want)
		}
	}
}

func TestDisabled(t *testing.T) {
	srv := httptest.NewServer(New(config.Monitoring{}, NewMetrics().Registry, logger.Nop()).Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("status %v, want 404", resp.StatusCode)
	}
}
