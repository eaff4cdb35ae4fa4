package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var registry = prometheus.NewRegistry()

var (
	startTime = time.Now()

	UptimeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "harness",
		Name:      "uptime_seconds",
		Help:      "Time passed since the harness started in seconds",
	})

	BenchmarkTrialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harness",
		Name:      "benchmark_trials_total",
		Help:      "Benchmark trials by operation and outcome",
	}, []string{"operation", "status"})

	FormatTestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harness",
		Name:      "format_tests_total",
		Help:      "Format suite test cases by format and outcome",
	}, []string{"format", "status"})

	EvolveEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harness",
		Name:      "evolve_evaluations_total",
		Help:      "Candidate evaluations by status",
	}, []string{"status"})

	EvolveBestScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "harness",
		Name:      "evolve_best_score",
		Help:      "Best score seen across all generations so far",
	})

	HostCPUPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "harness",
		Name:      "host_cpu_percent",
		Help:      "System-wide CPU utilization percentage",
	})

	HostMemoryPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "harness",
		Name:      "host_memory_percent",
		Help:      "System-wide memory utilization percentage",
	})
)

func init() {
	registry.MustRegister(
		UptimeSeconds,
		BenchmarkTrialsTotal,
		FormatTestsTotal,
		EvolveEvaluationsTotal,
		EvolveBestScore,
		HostCPUPercent,
		HostMemoryPercent,
	)
}

// Handler returns the HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// StartSystemMetricsCollection updates uptime and host gauges until stopCh
// closes. Runs with a coarse interval so it does not perturb measurements.
func StartSystemMetricsCollection(stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				UptimeSeconds.Set(time.Since(startTime).Seconds())
				if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
					HostCPUPercent.Set(cpuPercent[0])
				}
				if vmStat, err := mem.VirtualMemory(); err == nil {
					HostMemoryPercent.Set(vmStat.UsedPercent)
				}
			}
		}
	}()
}

// Serve exposes the metrics endpoint on addr for the lifetime of the run.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
