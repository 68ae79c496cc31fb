// Package monitor 使用 Prometheus 记录实验运行指标。
//
// 每个 Monitor 持有独立的 Registry，离线实验结束后可以通过 WriteTextfile
// 写成 node_exporter textfile 格式，由 textfile collector 采集。
package monitor

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reclab"

// Monitor 聚合实验相关的 Prometheus 指标。
type Monitor struct {
	reg *prometheus.Registry

	// StageDuration 各阶段耗时（fit / score / filter / topn / evaluate）
	StageDuration *prometheus.HistogramVec

	// Metric 最近一次运行的指标值（hr / mrr / coverage / rmse）
	Metric *prometheus.GaugeVec

	// Runs 运行次数，按结果（ok / error）区分
	Runs *prometheus.CounterVec
}

// New 创建 Monitor 并在私有 Registry 上注册全部指标。
func New() *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Monitor{
		reg: reg,
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of experiment stages in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms ~ 4.4min
			},
			[]string{"model", "stage"},
		),
		Metric: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "evaluation_metric",
				Help:      "Offline evaluation metric of the latest run",
			},
			[]string{"model", "metric", "topn"},
		),
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of model runs",
			},
			[]string{"model", "status"},
		),
	}
}

// Registry 返回私有 Registry。
func (m *Monitor) Registry() *prometheus.Registry { return m.reg }

// Track 开始计时，返回的函数结束计时并记录耗时。
func (m *Monitor) Track(model, stage string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		m.StageDuration.WithLabelValues(model, stage).Observe(d.Seconds())
		return d
	}
}

// SetMetric 记录一个评估指标；topN 为 0 表示与 N 无关（如 rmse）。
func (m *Monitor) SetMetric(model, metric string, topN int, v float64) {
	m.Metric.WithLabelValues(model, metric, strconv.Itoa(topN)).Set(v)
}

// RunFinished 按结果累计运行次数。
func (m *Monitor) RunFinished(model string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Runs.WithLabelValues(model, status).Inc()
}

// WriteTextfile 以 textfile 格式写出全部指标。
func (m *Monitor) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
