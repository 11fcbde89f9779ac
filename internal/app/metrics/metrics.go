// Package metrics 質押池的 Prometheus 指標
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry 專屬的 collector 註冊表，不使用全域 DefaultRegisterer
	Registry = prometheus.NewRegistry()

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stake_ledger",
			Subsystem: "commands",
			Name:      "total",
			Help:      "Total number of ledger commands by type and result.",
		},
		[]string{"type", "result"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stake_ledger",
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Duration of ledger commands.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		},
		[]string{"type"},
	)

	poolTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stake_ledger",
			Subsystem: "pool",
			Name:      "total_amount",
			Help:      "Pool total amount after the last successful command.",
		},
	)

	payoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stake_ledger",
			Subsystem: "pool",
			Name:      "payouts_total",
			Help:      "Total amount paid out by withdrawals (principal plus gain).",
		},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stake_ledger",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stake_ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stake_ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	distributionRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stake_ledger",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		commandsTotal,
		commandDuration,
		poolTotal,
		payoutsTotal,
		httpInFlight,
		httpRequests,
		httpDuration,
		distributionRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler 輸出 /metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCommand 紀錄一次指令的結果，result 為 "ok" 或錯誤種類
func RecordCommand(cmdType, result string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Microsecond
	}
	commandsTotal.WithLabelValues(cmdType, result).Inc()
	commandDuration.WithLabelValues(cmdType).Observe(duration.Seconds())
}

// SetPoolTotal 更新池子總額
func SetPoolTotal(total uint64) {
	poolTotal.Set(float64(total))
}

// AddPayout 累加提領出去的金額
func AddPayout(amount uint64) {
	payoutsTotal.Add(float64(amount))
}

// RecordJobRun 紀錄排程工作
func RecordJobRun(job string, success bool) {
	if job == "" {
		job = "unknown"
	}
	distributionRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
}

// Middleware 記錄 HTTP 指標，path 優先使用 mux 的路由樣板避免 label 爆量
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
