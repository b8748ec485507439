// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/thoughtflow/search"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	registry *prometheus.Registry

	// 生成器指标
	generatorRequestsTotal   *prometheus.CounterVec
	generatorRequestDuration *prometheus.HistogramVec
	generatorTokensUsed      *prometheus.CounterVec

	// 评估缓存指标
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// 搜索指标
	stepDuration     *prometheus.HistogramVec
	stepCandidates   *prometheus.HistogramVec
	itemsSolved      *prometheus.CounterVec
	solveDuration    prometheus.Histogram
	accuracy         prometheus.Gauge
	validPredictions prometheus.Gauge

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

var _ search.Observer = (*Collector)(nil)

// NewCollector 创建指标收集器，指标注册在私有 Registry 上
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// 生成器指标
	c.generatorRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_requests_total",
			Help:      "Total number of completion requests issued by the generator",
		},
		[]string{"provider", "model", "status"},
	)

	c.generatorRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_request_duration_seconds",
			Help:      "Completion request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.generatorTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"},
	)

	// 评估缓存指标
	c.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "value_cache_hits_total",
		Help:      "Total number of value cache hits",
	})

	c.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "value_cache_misses_total",
		Help:      "Total number of value cache misses",
	})

	// 搜索指标
	c.stepDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_step_duration_seconds",
			Help:      "Duration of one generate-evaluate-select step",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"step"},
	)

	c.stepCandidates = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_step_candidates",
			Help:      "Number of candidates generated per step",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"step"},
	)

	c.itemsSolved = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_solved_total",
			Help:      "Total number of solved items by outcome",
		},
		[]string{"status"},
	)

	c.solveDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "solve_duration_seconds",
		Help:      "Duration of solving one item",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	c.accuracy = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "evaluation_accuracy",
		Help:      "Accuracy of the last evaluation report",
	})

	c.validPredictions = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "evaluation_valid_predictions",
		Help:      "Number of predictions kept by the last evaluation report",
	})

	// 数据库指标
	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	return c
}

// Registry 返回私有 Registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordGeneration 记录一次补全请求，实现 llm.GenerationRecorder
func (c *Collector) RecordGeneration(provider, model, status string, latency time.Duration, promptTokens, completionTokens int) {
	c.generatorRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.generatorRequestDuration.WithLabelValues(provider, model).Observe(latency.Seconds())
	c.generatorTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.generatorTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// CacheHit implements search.Observer.
func (c *Collector) CacheHit() { c.cacheHits.Inc() }

// CacheMiss implements search.Observer.
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }

// StepCompleted implements search.Observer.
func (c *Collector) StepCompleted(rec search.StepRecord, elapsed time.Duration) {
	step := strconv.Itoa(rec.Step)
	c.stepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
	c.stepCandidates.WithLabelValues(step).Observe(float64(len(rec.Candidates)))
}

// SolveCompleted implements search.Observer.
func (c *Collector) SolveCompleted(res *search.Result, err error, elapsed time.Duration) {
	status := "success"
	switch {
	case err != nil:
		status = "error"
	case res == nil || res.Best == nil:
		status = "empty"
	}
	c.itemsSolved.WithLabelValues(status).Inc()
	c.solveDuration.Observe(elapsed.Seconds())
}

// RecordEvaluation 记录评估报告
func (c *Collector) RecordEvaluation(accuracy float64, valid int) {
	c.accuracy.Set(accuracy)
	c.validPredictions.Set(float64(valid))
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 📤 导出
// =============================================================================

// WriteTextfile 以 Prometheus 文本格式写出全部指标，供 node_exporter textfile collector 采集
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		c.logger.Error("failed to write metrics textfile", zap.String("path", path), zap.Error(err))
		return err
	}
	c.logger.Debug("metrics textfile written", zap.String("path", path))
	return nil
}
