package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pspwatch/pspwatch/server/internal/compute"
	"github.com/pspwatch/pspwatch/server/internal/config"
	"github.com/pspwatch/pspwatch/server/internal/events"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// statusRule is the rule name carried by status transition alerts.
const statusRule = "psp_status"

// Alert represents a single alert event produced by the engine.
type Alert struct {
	ID         string                 `json:"id"`
	RuleName   string                 `json:"rule_name"`
	PSP        string                 `json:"psp"`
	Severity   compute.Severity       `json:"severity"`
	Status     compute.HealthStatus   `json:"status"`
	Message    string                 `json:"message"`
	Value      float64                `json:"value"`
	Breaches   []compute.AlertMessage `json:"alerts"`
	FiredAt    time.Time              `json:"fired_at"`
	ResolvedAt *time.Time             `json:"resolved_at,omitempty"`
	State      string                 `json:"state"`
}

type rule struct {
	name      string
	condition string
	severity  compute.Severity
}

// Engine tracks alert state per PSP and delivers notifications when alerts
// fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	webhooks []config.WebhookConfig
	cooldown time.Duration
	bus      events.Bus

	mu       sync.Mutex
	active   map[string]*Alert    // key: see statusKey and ruleKey
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time
	wg       sync.WaitGroup
}

// New creates an Engine from the server alert configuration. bus may be nil.
// Rules whose condition does not parse are logged and skipped.
func New(cfg config.AlertsConfig, bus events.Bus) *Engine {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	e := &Engine{
		webhooks: cfg.Webhooks,
		cooldown: cooldown,
		bus:      bus,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	for _, r := range cfg.Rules {
		if !validCondition(r.Condition) {
			slog.Warn("alerts: skipping rule with invalid condition", "rule", r.Name, "condition", r.Condition)
			continue
		}
		sev := compute.SeverityWarning
		if r.Severity == "critical" {
			sev = compute.SeverityCritical
		}
		e.rules = append(e.rules, rule{name: r.Name, condition: r.Condition, severity: sev})
	}
	return e
}

// Evaluate updates alert state from one cycle of PSP health and returns the
// alerts that fired or resolved during it.
func (e *Engine) Evaluate(ctx context.Context, health []compute.PSPHealth) []Alert {
	now := e.now()
	var changed []Alert

	for _, h := range health {
		sev, firing := statusSeverity(h.Status)
		msg := fmt.Sprintf("[%s] %s is %s", sev, h.PSP, h.Status)
		if len(h.Alerts) > 0 {
			msg += ": " + describe(h.Alerts)
		}
		changed = e.apply(changed, now, statusKey(h.PSP), statusRule, h, firing, sev, msg, float64(h.Status))

		for _, r := range e.rules {
			fires, value := evalCondition(r.condition, h)
			msg := fmt.Sprintf("[%s] %s fired on %s: %s = %.4g", r.severity, r.name, h.PSP, r.condition, value)
			changed = e.apply(changed, now, ruleKey(r.name, h.PSP), r.name, h, fires, r.severity, msg, value)
		}
	}

	for i := range changed {
		a := changed[i]
		e.publish(ctx, a)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.deliver(&a)
		}()
	}
	return changed
}

// Built-in status alerts and configured rules live in separate key spaces so
// a rule may share the built-in rule name.
func statusKey(psp string) string { return "status/" + psp }
func ruleKey(name, psp string) string { return "rule/" + name + "/" + psp }

// apply runs one fire/resolve decision for key.
func (e *Engine) apply(changed []Alert, now time.Time, key, ruleName string, h compute.PSPHealth,
	fires bool, sev compute.Severity, msg string, value float64) []Alert {

	e.mu.Lock()
	defer e.mu.Unlock()

	cur, isActive := e.active[key]

	if !fires {
		if !isActive {
			return changed
		}
		resolved := now
		cur.State = StateResolved
		cur.ResolvedAt = &resolved
		cur.Status = h.Status
		delete(e.active, key)

		e.history = append(e.history, cur)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		slog.Info("alert resolved", "rule", ruleName, "psp", h.PSP)
		return append(changed, *cur)
	}

	if isActive {
		escalated := sev > cur.Severity
		cur.Status = h.Status
		cur.Breaches = h.Alerts
		cur.Value = value
		if !escalated {
			cur.Severity = sev
			cur.Message = msg
			return changed
		}
	} else if now.Sub(e.lastFire[key]) <= e.cooldown {
		return changed
	}

	a := &Alert{
		ID:       uuid.NewString(),
		RuleName: ruleName,
		PSP:      h.PSP,
		Severity: sev,
		Status:   h.Status,
		Message:  msg,
		Value:    value,
		Breaches: h.Alerts,
		FiredAt:  now,
		State:    StateFiring,
	}
	e.active[key] = a
	e.lastFire[key] = now

	slog.Warn("alert fired",
		"rule", ruleName,
		"psp", h.PSP,
		"value", value,
		"severity", sev,
	)
	return append(changed, *a)
}

func (e *Engine) publish(ctx context.Context, a Alert) {
	if e.bus == nil {
		return
	}
	if err := events.Emit(ctx, e.bus, events.TypeAlert, a); err != nil {
		slog.Warn("alerts: publish failed", "rule", a.RuleName, "psp", a.PSP, "err", err)
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]Alert, 0, len(e.active))

	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Run calls evaluate every interval and feeds the result to Evaluate. It
// blocks until ctx is cancelled, then waits for in-flight webhook deliveries.
func (e *Engine) Run(ctx context.Context, interval time.Duration, evaluate func(context.Context) ([]compute.PSPHealth, error)) {
	defer e.wg.Wait()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			health, err := evaluate(ctx)
			if err != nil {
				slog.Error("alerts: evaluation failed", "err", err)
				continue
			}
			e.Evaluate(ctx, health)
		}
	}
}

func statusSeverity(s compute.HealthStatus) (compute.Severity, bool) {
	switch s {
	case compute.StatusUnhealthy:
		return compute.SeverityCritical, true
	case compute.StatusDegraded:
		return compute.SeverityWarning, true
	case compute.StatusHealthy:
		return compute.SeverityWarning, false
	default:
		return compute.SeverityWarning, false
	}
}

func describe(breaches []compute.AlertMessage) string {
	parts := make([]string, len(breaches))
	for i, b := range breaches {
		parts[i] = fmt.Sprintf("%s %.4g %s", b.Metric, b.CurrentValue, b.Threshold)
	}
	return strings.Join(parts, ", ")
}
