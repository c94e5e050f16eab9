// Package metrics 提供 Prometheus 指标集合与采集 HTTP 服务
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/optionpricing/pkg/logger"
)

const namespace = "optionpricing"

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// gRPC 请求计数
	GRPCRequestsTotal *prometheus.CounterVec
	// gRPC 请求耗时
	GRPCRequestDuration *prometheus.HistogramVec

	// 业务指标
	OptionsPriced     *prometheus.CounterVec
	SurfacesGenerated prometheus.Counter
	SurfaceCells      prometheus.Counter
	ChainFetches      *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
}

// New 创建指标实例并注册到独立 registry
func New(serviceName string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "grpc_requests_total",
			Help:      "Total gRPC requests",
		}, []string{"method", "code"}),
		GRPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		OptionsPriced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "options_priced_total",
			Help:      "Black-Scholes evaluations served, by outcome",
		}, []string{"result"}),
		SurfacesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "surfaces_generated_total",
			Help:      "Sensitivity surfaces generated",
		}),
		SurfaceCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "surface_cells_total",
			Help:      "Grid cells evaluated across all surfaces",
		}),
		ChainFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "chain_fetches_total",
			Help:      "Option chain fetches, by result",
		}, []string{"result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups, by cache and outcome",
		}, []string{"cache", "outcome"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "events_published_total",
			Help:      "Domain events published, by type and result",
		}, []string{"type", "result"}),
	}
	return m
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GRPCRequestsTotal,
		m.GRPCRequestDuration,
		m.OptionsPriced,
		m.SurfacesGenerated,
		m.SurfaceCells,
		m.ChainFetches,
		m.CacheLookups,
		m.EventsPublished,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	}

	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 promhttp 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// NewServer 创建 Prometheus HTTP 服务器，由调用方负责启动与关闭
func (m *Metrics) NewServer(addr, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve 阻塞运行 srv，ctx 取消时优雅关闭
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting Prometheus HTTP server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// 以下方法均允许 nil 接收者，便于在测试和未启用指标时直接调用

// ObserveHTTP 记录 HTTP 请求
func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveGRPC 记录 gRPC 请求
func (m *Metrics) ObserveGRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordPricing 记录一次定价
func (m *Metrics) RecordPricing(err error) {
	if m == nil {
		return
	}
	m.OptionsPriced.WithLabelValues(resultLabel(err)).Inc()
}

// RecordSurface 记录一次曲面生成
func (m *Metrics) RecordSurface(cells int) {
	if m == nil {
		return
	}
	m.SurfacesGenerated.Inc()
	m.SurfaceCells.Add(float64(cells))
}

// RecordChainFetch 记录一次期权链拉取，result 为 ok / no_data / error
func (m *Metrics) RecordChainFetch(result string) {
	if m == nil {
		return
	}
	m.ChainFetches.WithLabelValues(result).Inc()
}

// RecordCache 记录缓存命中情况
func (m *Metrics) RecordCache(cache string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, outcome).Inc()
}

// RecordEvent 记录事件发布
func (m *Metrics) RecordEvent(eventType string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
