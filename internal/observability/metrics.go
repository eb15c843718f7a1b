package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	ordersPlaced    *Counter
	orderTransition *CounterVec
	paymentOutcomes *CounterVec
	refundsTotal    *CounterVec
	stockChanges    *CounterVec
	lowStockAlerts  *Counter
	idempotencyHits *CounterVec

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	sloCompliance *GaugeVec
	sloBudget     *GaugeVec
	sloBurn       *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init returns the process-wide registry, or nil when metrics are disabled.
// All Metrics methods are nil-safe.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// NewMetrics builds an unregistered registry. Init should be preferred outside tests.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	return &Metrics{
		apiRequests: NewCounterVec("sf_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"sf_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			latencyBuckets,
		),
		apiInflight: NewGauge("sf_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("sf_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("sf_api_requests_error_total", "Total API requests answered with 5xx."),

		aggregateOps: NewCounterVec("sf_aggregate_operations_total", "Aggregate write operations by name/status.", []string{"operation", "status"}),
		aggregateLatency: NewHistogramVec(
			"sf_aggregate_operation_duration_seconds",
			"Aggregate write latency in seconds by name/status.",
			[]string{"operation", "status"},
			latencyBuckets,
		),
		aggregateConflicts: NewCounterVec("sf_aggregate_conflicts_total", "Aggregate writes that lost a concurrency race.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("sf_aggregate_retryable_total", "Aggregate writes that failed with a retryable error.", []string{"operation"}),

		ordersPlaced:    NewCounter("sf_orders_placed_total", "Orders created from carts."),
		orderTransition: NewCounterVec("sf_order_transitions_total", "Order status transitions by target status.", []string{"to"}),
		paymentOutcomes: NewCounterVec("sf_payment_outcomes_total", "Payment attempts by outcome.", []string{"outcome"}),
		refundsTotal:    NewCounterVec("sf_refunds_total", "Refund attempts by status.", []string{"status"}),
		stockChanges:    NewCounterVec("sf_stock_changes_total", "Stock mutations by reason.", []string{"reason"}),
		lowStockAlerts:  NewCounter("sf_low_stock_alerts_total", "Stock changes that crossed the low-stock threshold."),
		idempotencyHits: NewCounterVec("sf_idempotency_checks_total", "Duplicate-payment fast path checks by result.", []string{"backend", "result"}),

		pgStats:   NewGaugeVec("sf_postgres_pool", "Database connection pool stats.", []string{"stat"}),
		redisUp:   NewGauge("sf_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("sf_redis_ping_seconds", "Redis ping latency in seconds."),

		sloCompliance: NewGaugeVec("sf_slo_compliance", "SLI over the rolling window.", []string{"slo", "window"}),
		sloBudget:     NewGaugeVec("sf_slo_error_budget_remaining", "Fraction of the error budget left.", []string{"slo", "window"}),
		sloBurn:       NewGaugeVec("sf_slo_burn_rate", "Error budget burn rate.", []string{"slo", "window"}),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) error {
	if m == nil {
		return nil
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	if log != nil {
		log.Info("metrics server listening", "addr", addr)
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		if log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
		return err
	}
	return nil
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.ordersPlaced, m.orderTransition, m.paymentOutcomes, m.refundsTotal,
		m.stockChanges, m.lowStockAlerts, m.idempotencyHits,
		m.pgStats, m.redisUp, m.redisPing,
		m.sloCompliance, m.sloBudget, m.sloBurn,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if name == "" {
		name = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.aggregateOps.Inc(name, status)
	m.aggregateLatency.Observe(dur.Seconds(), name, status)
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(name)
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(name)
}

func (m *Metrics) IncOrderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *Metrics) IncOrderTransition(to string) {
	if m == nil {
		return
	}
	m.orderTransition.Inc(to)
}

func (m *Metrics) IncPaymentOutcome(outcome string) {
	if m == nil {
		return
	}
	m.paymentOutcomes.Inc(outcome)
}

func (m *Metrics) IncRefund(status string) {
	if m == nil {
		return
	}
	m.refundsTotal.Inc(status)
}

func (m *Metrics) IncStockChange(reason string) {
	if m == nil {
		return
	}
	m.stockChanges.Inc(reason)
}

func (m *Metrics) IncLowStockAlert() {
	if m == nil {
		return
	}
	m.lowStockAlerts.Inc()
}

func (m *Metrics) IncIdempotencyCheck(backend string, duplicate bool) {
	if m == nil {
		return
	}
	result := "miss"
	if duplicate {
		result = "hit"
	}
	m.idempotencyHits.Inc(backend, result)
}

// Read accessors for assertions and the health endpoint.

func (m *Metrics) OrdersPlaced() float64 {
	if m == nil {
		return 0
	}
	return m.ordersPlaced.Value()
}

func (m *Metrics) PaymentOutcomes(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.paymentOutcomes.Value(outcome)
}

func (m *Metrics) StockChanges(reason string) float64 {
	if m == nil {
		return 0
	}
	return m.stockChanges.Value(reason)
}

func (m *Metrics) LowStockAlerts() float64 {
	if m == nil {
		return 0
	}
	return m.lowStockAlerts.Value()
}

func (m *Metrics) AggregateConflicts(operation string) float64 {
	if m == nil {
		return 0
	}
	return m.aggregateConflicts.Value(operation)
}

// StartPostgresCollector samples pool stats until ctx is done.
func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) error {
	if m == nil || db == nil {
		return nil
	}
	ticker := time.NewTicker(scrapeInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sqlDB, err := db.DB()
			if err != nil {
				if log != nil {
					log.Warn("metrics: db stats unavailable", "error", err)
				}
				continue
			}
			stats := sqlDB.Stats()
			m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
			m.pgStats.Set(float64(stats.InUse), "in_use")
			m.pgStats.Set(float64(stats.Idle), "idle")
			m.pgStats.Set(float64(stats.WaitCount), "wait_count")
			m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
		}
	}
}

// StartRedisCollector pings rdb until ctx is done. The caller owns rdb.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) error {
	if m == nil || rdb == nil {
		return nil
	}
	ticker := time.NewTicker(scrapeInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			start := time.Now()
			if err := rdb.Ping(ctx).Err(); err != nil {
				m.redisUp.Set(0)
				if log != nil {
					log.Warn("metrics: redis ping failed", "error", err)
				}
				continue
			}
			m.redisUp.Set(1)
			m.redisPing.Set(time.Since(start).Seconds())
		}
	}
}
