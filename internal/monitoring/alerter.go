package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aidiscovery-cli/internal/config"
	"github.com/sells-group/aidiscovery-cli/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertAuditFailureRate AlertType = "audit_failure_rate"
	AlertCostOverrun      AlertType = "cost_overrun"
	AlertWhatsAppFailure  AlertType = "whatsapp_failure"
)

// Below this many finished audits the failure rate is noise.
const minFinished = 5

// Alert is the JSON body posted to the webhook.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// rule inspects a snapshot and returns an alert when it fires.
type rule func(cfg config.MonitoringConfig, s *MetricsSnapshot) *Alert

var rules = []rule{failureRateRule, costRule, whatsAppRule}

func failureRateRule(cfg config.MonitoringConfig, s *MetricsSnapshot) *Alert {
	finished := s.Finished()
	if finished < minFinished || s.FailRate <= cfg.FailureRateThreshold {
		return nil
	}
	return &Alert{
		Type:     AlertAuditFailureRate,
		Severity: "high",
		Message: fmt.Sprintf("Audit failure rate %.1f%% is above %.1f%% (%d failed / %d finished in last %dh)",
			s.FailRate*100, cfg.FailureRateThreshold*100, s.AuditsFailed, finished, s.LookbackHours),
		Details: map[string]any{
			"failure_rate": s.FailRate,
			"threshold":    cfg.FailureRateThreshold,
			"failed":       s.AuditsFailed,
			"finished":     finished,
		},
	}
}

func costRule(cfg config.MonitoringConfig, s *MetricsSnapshot) *Alert {
	if cfg.CostThresholdUSD <= 0 || s.CostUSD <= cfg.CostThresholdUSD {
		return nil
	}
	return &Alert{
		Type:     AlertCostOverrun,
		Severity: "high",
		Message: fmt.Sprintf("Audit spend $%.2f is above $%.2f in last %dh (%d audits)",
			s.CostUSD, cfg.CostThresholdUSD, s.LookbackHours, s.AuditsTotal),
		Details: map[string]any{
			"cost_usd":      s.CostUSD,
			"threshold_usd": cfg.CostThresholdUSD,
			"audits_total":  s.AuditsTotal,
		},
	}
}

func whatsAppRule(_ config.MonitoringConfig, s *MetricsSnapshot) *Alert {
	if s.WhatsAppFailed == 0 {
		return nil
	}
	return &Alert{
		Type:     AlertWhatsAppFailure,
		Severity: "medium",
		Message:  fmt.Sprintf("%d WhatsApp report(s) were not delivered in last %dh", s.WhatsAppFailed, s.LookbackHours),
		Details:  map[string]any{"failed": s.WhatsAppFailed, "sent": s.WhatsAppSent},
	}
}

// Alerter turns snapshots into alerts and posts them to the webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NewAlerter creates an Alerter for cfg's thresholds and webhook.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 5 * time.Second},
		now:    time.Now,
	}
}

// Evaluate returns the alerts snap triggers, in rule order.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	now := a.now().UTC()
	var alerts []Alert
	for _, r := range rules {
		if alert := r(a.cfg, snap); alert != nil {
			alert.Timestamp = now
			alerts = append(alerts, *alert)
		}
	}
	return alerts
}

// SendAlerts posts each alert and returns how many the webhook accepted.
// Nothing is sent without a webhook URL.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" {
		return 0
	}
	sent := 0
	for _, alert := range alerts {
		log := zap.L().With(zap.String("type", string(alert.Type)), zap.String("severity", alert.Severity))
		if err := resilience.Do(ctx, a.retry, func(ctx context.Context) error { return a.post(ctx, alert) }); err != nil {
			log.Error("monitoring: alert not delivered", zap.Error(err))
			continue
		}
		log.Info("monitoring: alert sent")
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: encode alert")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "monitoring: post webhook"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 300 {
		return nil
	}
	err = eris.Errorf("monitoring: webhook status %d", resp.StatusCode)
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(err, resp.StatusCode)
	}
	return err
}
