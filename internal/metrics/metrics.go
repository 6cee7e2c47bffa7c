package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "theunion"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "method", "status"})
	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	paymentEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "events_total",
		Help:      "Payment gateway operations by provider, operation and result.",
	}, []string{"provider", "operation", "result"})
	ordersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "order",
		Name:      "created_total",
		Help:      "Orders persisted after a verified payment.",
	})
	inventoryWarnings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "warnings_total",
		Help:      "Inventory reservation warnings by reason.",
	}, []string{"reason"})
	stockCASRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "cas_retries_total",
		Help:      "Compare-and-swap retries on inventory rows.",
	})
)

func init() {
	prometheus.MustRegister(httpRequests, httpLatency, paymentEvents, ordersCreated, inventoryWarnings, stockCASRetries)
}

// ObserveHTTP 记录一次 HTTP 请求
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))
}

// ObservePayment 记录支付网关操作结果
func ObservePayment(provider, operation, result string) {
	paymentEvents.WithLabelValues(provider, operation, result).Inc()
}

// IncOrderCreated 订单创建计数
func IncOrderCreated() {
	ordersCreated.Inc()
}

// IncInventoryWarning 库存告警计数
func IncInventoryWarning(reason string) {
	inventoryWarnings.WithLabelValues(reason).Inc()
}

// IncStockCASRetry 库存 CAS 重试计数
func IncStockCASRetry() {
	stockCASRetries.Inc()
}

// Handler 暴露 prometheus 指标
func Handler() http.Handler {
	return promhttp.Handler()
}
