package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pspwatch/pspwatch/server/internal/compute"
)

const deliverTimeout = 10 * time.Second

// formatters build the request body for each supported webhook type.
var formatters = map[string]func(a *Alert) any{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  func(a *Alert) any { return httpPayload{Alert: a} },
}

type slackMessage struct {
	Text string `json:"text"`
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsSection struct {
	Facts []teamsFact `json:"facts"`
}

type teamsCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []teamsSection `json:"sections,omitempty"`
}

type httpPayload struct {
	Alert *Alert `json:"alert"`
}

// deliver posts a to every configured webhook with a resolvable URL.
// Failures are logged only.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		format, ok := formatters[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err := e.post(url, format(a)); err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type, "psp", a.PSP, "rule", a.RuleName, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "psp", a.PSP, "state", a.State)
	}
}

func (e *Engine) post(url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func slackPayload(a *Alert) any {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* %s", label(a), a.Message)
	if a.State == StateResolved {
		b.WriteString(" (resolved)")
	}
	for _, m := range a.Breaches {
		fmt.Fprintf(&b, "\n• %s %s (now %g)", m.Metric, m.Threshold, m.CurrentValue)
	}
	return slackMessage{Text: b.String()}
}

func teamsPayload(a *Alert) any {
	card := teamsCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: color(a),
		Summary:    a.PSP + " " + a.RuleName,
		Title:      fmt.Sprintf("PSP Alert: %s (%s)", a.PSP, a.State),
		Text:       a.Message,
	}
	if len(a.Breaches) > 0 {
		facts := make([]teamsFact, 0, len(a.Breaches))
		for _, m := range a.Breaches {
			facts = append(facts, teamsFact{
				Name:  m.Metric,
				Value: fmt.Sprintf("%g (threshold %s)", m.CurrentValue, m.Threshold),
			})
		}
		card.Sections = []teamsSection{{Facts: facts}}
	}
	return card
}

func label(a *Alert) string {
	if a.State == StateResolved {
		return "[RESOLVED]"
	}
	switch a.Severity {
	case compute.SeverityCritical:
		return "[CRITICAL]"
	case compute.SeverityWarning:
		return "[WARNING]"
	}
	return "[INFO]"
}

func color(a *Alert) string {
	if a.State == StateResolved {
		return "2EB67D"
	}
	switch a.Severity {
	case compute.SeverityCritical:
		return "FF4F6A"
	case compute.SeverityWarning:
		return "FFAB40"
	}
	return "00D4FF"
}
