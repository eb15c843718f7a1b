package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

const (
	SLOAPIAvailability = "api_availability"
	SLOPaymentSuccess  = "payment_success"
)

type rollingSum struct {
	values []float64
	idx    int
	total  float64
}

func newRollingSum(size int) *rollingSum {
	if size < 1 {
		size = 1
	}
	return &rollingSum{values: make([]float64, size)}
}

func (r *rollingSum) add(v float64) {
	r.total += v - r.values[r.idx]
	r.values[r.idx] = v
	r.idx++
	if r.idx >= len(r.values) {
		r.idx = 0
	}
}

type SLOConfig struct {
	Enabled  bool
	Interval time.Duration
	Window   time.Duration

	APIAvailabilityTarget float64
	// PaymentSuccessTarget counts declined and unreachable-gateway attempts as bad.
	PaymentSuccessTarget float64

	AlertWebhook     string
	AlertOwner       string
	AlertMinInterval time.Duration
	BurnWarn         float64
	BurnCrit         float64
}

func (c SLOConfig) withDefaults() SLOConfig {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Window < c.Interval {
		c.Window = 24 * time.Hour
	}
	if c.APIAvailabilityTarget <= 0 {
		c.APIAvailabilityTarget = 0.995
	}
	if c.PaymentSuccessTarget <= 0 {
		c.PaymentSuccessTarget = 0.9
	}
	c.APIAvailabilityTarget = clamp01(c.APIAvailabilityTarget)
	c.PaymentSuccessTarget = clamp01(c.PaymentSuccessTarget)
	if c.AlertMinInterval <= 0 {
		c.AlertMinInterval = 15 * time.Minute
	}
	if c.BurnWarn <= 0 {
		c.BurnWarn = 2
	}
	if c.BurnCrit <= 0 {
		c.BurnCrit = 10
	}
	return c
}

type SLOEvaluator struct {
	metrics     *Metrics
	log         *logger.Logger
	cfg         SLOConfig
	windowLabel string
	client      *http.Client

	apiTotal  *rollingSum
	apiError  *rollingSum
	payTotal  *rollingSum
	payFailed *rollingSum

	prevAPITotal  float64
	prevAPIError  float64
	prevPayTotal  float64
	prevPayFailed float64

	alertMu    sync.Mutex
	lastAlerts map[string]time.Time
}

// StartSLOEvaluator evaluates the SLOs every interval until ctx is done.
func (m *Metrics) StartSLOEvaluator(ctx context.Context, log *logger.Logger, cfg SLOConfig) error {
	if m == nil || !cfg.Enabled {
		return nil
	}
	eval := NewSLOEvaluator(m, log, cfg)
	if log != nil {
		log.Info("SLO evaluator started", "window", eval.windowLabel, "interval", eval.cfg.Interval.String())
	}
	ticker := time.NewTicker(eval.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			eval.Evaluate()
		}
	}
}

func NewSLOEvaluator(m *Metrics, log *logger.Logger, cfg SLOConfig) *SLOEvaluator {
	cfg = cfg.withDefaults()
	size := int(cfg.Window / cfg.Interval)
	return &SLOEvaluator{
		metrics:     m,
		log:         log,
		cfg:         cfg,
		windowLabel: formatWindowLabel(cfg.Window),
		client:      &http.Client{Timeout: 5 * time.Second},
		apiTotal:    newRollingSum(size),
		apiError:    newRollingSum(size),
		payTotal:    newRollingSum(size),
		payFailed:   newRollingSum(size),
		lastAlerts:  map[string]time.Time{},
	}
}

// Evaluate folds the counter deltas since the last call into the window and
// publishes compliance, budget and burn gauges.
func (e *SLOEvaluator) Evaluate() {
	if e.metrics == nil {
		return
	}
	apiTotal := e.metrics.apiReqTotal.Value()
	apiError := e.metrics.apiReqError.Value()
	payFailed := e.metrics.paymentOutcomes.Value("gateway_error")
	payTotal := e.metrics.paymentOutcomes.Value("paid") + payFailed

	e.apiTotal.add(delta(apiTotal, e.prevAPITotal))
	e.apiError.add(delta(apiError, e.prevAPIError))
	e.payTotal.add(delta(payTotal, e.prevPayTotal))
	e.payFailed.add(delta(payFailed, e.prevPayFailed))

	e.prevAPITotal = apiTotal
	e.prevAPIError = apiError
	e.prevPayTotal = payTotal
	e.prevPayFailed = payFailed

	e.evalSLO(SLOAPIAvailability, e.apiTotal.total, e.apiError.total, e.cfg.APIAvailabilityTarget)
	e.evalSLO(SLOPaymentSuccess, e.payTotal.total, e.payFailed.total, e.cfg.PaymentSuccessTarget)
}

// Compliance returns the last published SLI for name.
func (e *SLOEvaluator) Compliance(name string) float64 {
	return e.metrics.sloCompliance.Value(name, e.windowLabel)
}

func (e *SLOEvaluator) evalSLO(name string, total, bad, target float64) {
	if total <= 0 {
		e.metrics.sloCompliance.Set(1, name, e.windowLabel)
		e.metrics.sloBudget.Set(1, name, e.windowLabel)
		e.metrics.sloBurn.Set(0, name, e.windowLabel)
		return
	}
	sli := clamp01(1 - bad/total)
	burn := 0.0
	if target < 1 {
		burn = (1 - sli) / (1 - target)
	}
	budget := clamp01(1 - burn)
	e.metrics.sloCompliance.Set(sli, name, e.windowLabel)
	e.metrics.sloBudget.Set(budget, name, e.windowLabel)
	e.metrics.sloBurn.Set(burn, name, e.windowLabel)

	if e.cfg.AlertWebhook == "" || e.cfg.AlertOwner == "" {
		return
	}
	severity := ""
	if burn >= e.cfg.BurnCrit {
		severity = "critical"
	} else if burn >= e.cfg.BurnWarn {
		severity = "warning"
	}
	if severity == "" {
		return
	}
	key := name + ":" + severity
	e.alertMu.Lock()
	last := e.lastAlerts[key]
	if !last.IsZero() && time.Since(last) < e.cfg.AlertMinInterval {
		e.alertMu.Unlock()
		return
	}
	e.lastAlerts[key] = time.Now()
	e.alertMu.Unlock()
	e.sendAlert(name, severity, sli, target, burn, budget)
}

func (e *SLOEvaluator) sendAlert(name, severity string, sli, target, burn, budget float64) {
	payload := map[string]any{
		"title":                  "SLO burn rate alert",
		"severity":               severity,
		"owner":                  e.cfg.AlertOwner,
		"slo":                    name,
		"window":                 e.windowLabel,
		"sli":                    sli,
		"target":                 target,
		"burn_rate":              burn,
		"error_budget_remaining": budget,
		"timestamp":              time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, e.cfg.AlertWebhook, bytes.NewReader(body))
	if err != nil {
		if e.log != nil {
			e.log.Warn("slo alert request build failed", "error", err, "slo", name)
		}
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		if e.log != nil {
			e.log.Warn("slo alert post failed", "error", err, "slo", name)
		}
		return
	}
	_ = resp.Body.Close()
	if e.log != nil {
		e.log.Info("slo alert sent", "slo", name, "severity", severity, "status", resp.StatusCode)
	}
}

func delta(current, prev float64) float64 {
	if current < prev {
		return current
	}
	return current - prev
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formatWindowLabel(window time.Duration) string {
	hours := window.Hours()
	if hours >= 24 && int(hours)%24 == 0 && hours == float64(int(hours)) {
		return strconv.Itoa(int(hours/24)) + "d"
	}
	if hours >= 1 {
		return strconv.Itoa(int(hours)) + "h"
	}
	return strconv.Itoa(int(window.Minutes())) + "m"
}
