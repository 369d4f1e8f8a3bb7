package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "retrorun"

type Metrics struct {
	Registry *prometheus.Registry

	ButtonReports  prometheus.Counter
	BatteryWrites  prometheus.Counter
	BatteryElided  prometheus.Counter
	SlotSaves      prometheus.Counter
	SlotLoads      prometheus.Counter
	SaveErrors     *prometheus.CounterVec
	CoreSRAMWrites prometheus.Counter
}

func NewMetrics() *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	m := &Metrics{
		Registry:       prometheus.NewRegistry(),
		ButtonReports:  counter("button_reports_total", "Button changes passed to the core."),
		BatteryWrites:  counter("battery_writes_total", "Battery saves written to the store."),
		BatteryElided:  counter("battery_elided_total", "Battery flushes skipped as unchanged."),
		SlotSaves:      counter("slot_saves_total", "Save state slots written."),
		SlotLoads:      counter("slot_loads_total", "Save state slots restored."),
		CoreSRAMWrites: counter("core_sram_writes_total", "Battery file writes done by the core itself."),
		SaveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_errors_total",
			Help:      "Failed store operations.",
		}, []string{"op"}),
	}
	m.Registry.MustRegister(
		m.ButtonReports, m.BatteryWrites, m.BatteryElided, m.SlotSaves, m.SlotLoads,
		m.SaveErrors, m.CoreSRAMWrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// WatchLoop exposes the loop counters.
func (m *Metrics) WatchLoop(ticks, late func() int64) {
	m.Registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total", Help: "Emulated frames.",
		}, func() float64 { return float64(ticks()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "late_ticks_total", Help: "Frames skipped after a stall.",
		}, func() float64 { return float64(late()) }),
	)
}
