// Package jobs 运行后台计算任务并记录任务指标。
package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 指标名称
const (
	MetricRunsTotal     = "valueadd_runs_total"
	MetricRunDuration   = "valueadd_run_duration_seconds"
	MetricSheetsTotal   = "valueadd_sheets_total"
	MetricWarningsTotal = "valueadd_warnings_total"
	MetricRunsInFlight  = "valueadd_runs_in_flight"
	MetricRejectedTotal = "valueadd_runs_rejected_total"
)

// 任务结束状态（runs_total 的 status 标签）
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics 计算任务的 Prometheus 指标，并发安全
type Metrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	sheetsTotal *prometheus.CounterVec
	warnings    *prometheus.CounterVec
	inFlight    prometheus.Gauge
	rejected    prometheus.Counter
}

// NewMetrics 创建指标（未注册，需调用 Register）
func NewMetrics() *Metrics {
	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRunsTotal,
				Help: "Total number of scoring runs by scoring method and status",
			},
			[]string{"method", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRunDuration,
				Help:    "Histogram of scoring run duration in seconds by scoring method",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
			[]string{"method"},
		),
		sheetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSheetsTotal,
				Help: "Total number of processed sheets by result status",
			},
			[]string{"status"},
		),
		warnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricWarningsTotal,
				Help: "Total number of calculation warnings by kind",
			},
			[]string{"kind"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricRunsInFlight,
				Help: "Number of scoring runs currently executing",
			},
		),
		rejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricRejectedTotal,
				Help: "Total number of scoring runs rejected because all slots were busy",
			},
		),
	}
}

// Register 注册到 reg，重复注册返回错误
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRunsTotal 任务结束计数
func (m *Metrics) IncRunsTotal(method, status string) {
	m.runsTotal.WithLabelValues(method, status).Inc()
}

// ObserveRunDuration 记录任务耗时
func (m *Metrics) ObserveRunDuration(method string, seconds float64) {
	m.runDuration.WithLabelValues(method).Observe(seconds)
}

// IncSheets Sheet 处理结果计数
func (m *Metrics) IncSheets(status string) {
	m.sheetsTotal.WithLabelValues(status).Inc()
}

// IncWarnings 告警计数
func (m *Metrics) IncWarnings(kind string) {
	m.warnings.WithLabelValues(kind).Inc()
}

// RunStarted 任务开始执行
func (m *Metrics) RunStarted() { m.inFlight.Inc() }

// RunFinished 任务结束
func (m *Metrics) RunFinished() { m.inFlight.Dec() }

// IncRejected 因并发已满被拒绝的任务
func (m *Metrics) IncRejected() { m.rejected.Inc() }

// Collectors 全部采集器
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.sheetsTotal,
		m.warnings,
		m.inFlight,
		m.rejected,
	}
}
