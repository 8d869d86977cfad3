package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 扫描指标
	cycles          prometheus.Counter
	cycleDuration   prometheus.Histogram
	lastCycle       prometheus.Gauge
	lastDetections  prometheus.Gauge
	instruments     prometheus.Counter
	detections      *prometheus.CounterVec
	skipped         *prometheus.CounterVec
	malformedLevels prometheus.Counter

	// 系统指标
	restRequests *prometheus.CounterVec
	restErrors   *prometheus.CounterVec
	restLatency  *prometheus.HistogramVec
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "hugeorders",
		Subsystem: "scanner",
	}
}

// New 创建新的Monitor实例，使用独立 registry 并附带 Go/进程指标
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,

		cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cycles_total",
			Help:      "完成的扫描周期数",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "单个扫描周期耗时（秒）",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		lastCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "最近一次扫描完成的 Unix 时间",
		}),
		lastDetections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "last_cycle_detections",
			Help:      "最近一次扫描发现的大单数",
		}),
		instruments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "instruments_scanned_total",
			Help:      "扫描过的标的总数",
		}),
		detections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "detections_total",
				Help:      "发现的大单总数",
			},
			[]string{"side"},
		),
		skipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "skipped_instruments_total",
				Help:      "被跳过的标的数",
			},
			[]string{"reason"},
		),
		malformedLevels: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "malformed_levels_total",
			Help:      "被丢弃的坏档位数",
		}),

		restRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "gateway",
				Name:      "rest_requests_total",
				Help:      "REST请求总数",
			},
			[]string{"action"},
		),
		restErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "gateway",
				Name:      "rest_errors_total",
				Help:      "REST错误总数",
			},
			[]string{"action"},
		),
		restLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "gateway",
				Name:      "rest_latency_seconds",
				Help:      "REST请求延迟（秒）",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
	}
}

// 扫描相关方法
func (m *Monitor) RecordCycle(elapsed time.Duration, detections int, finished time.Time) {
	m.cycles.Inc()
	m.cycleDuration.Observe(elapsed.Seconds())
	m.lastCycle.Set(float64(finished.Unix()))
	m.lastDetections.Set(float64(detections))
}

func (m *Monitor) RecordInstrumentScanned() {
	m.instruments.Inc()
}

func (m *Monitor) RecordDetection(side string) {
	m.detections.WithLabelValues(side).Inc()
}

func (m *Monitor) RecordSkipped(reason string) {
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *Monitor) RecordMalformedLevels(n int) {
	m.malformedLevels.Add(float64(n))
}

// ObserveREST 实现 gateway.RESTObserver
func (m *Monitor) ObserveREST(action string, elapsed time.Duration, err error) {
	m.restRequests.WithLabelValues(action).Inc()
	m.restLatency.WithLabelValues(action).Observe(elapsed.Seconds())
	if err != nil {
		m.restErrors.WithLabelValues(action).Inc()
	}
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
