package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"usage-alerts/internal/rules"
)

// Notifier delivers fired alerts to an external sink. Delivery is
// fire-and-forget; callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, event rules.AlertEvent) error
}

// LogNotifier writes alerts to the structured log. It is the default
// channel when nothing else is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a log-backed sink.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify emits the alert as a structured log line.
func (n *LogNotifier) Notify(ctx context.Context, event rules.AlertEvent) error {
	n.logger.Warn().
		Str("alert_id", event.ID).
		Str("rule_id", event.RuleID).
		Str("severity", string(event.Severity)).
		Str("kind", string(event.Kind)).
		Str("title", event.Title).
		Msg(event.Message)
	return nil
}

// TelegramNotifier pushes alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram sink.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the rendered alert via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, event rules.AlertEvent) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(event),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false")
	}

	n.logger.Info().
		Str("alert_id", event.ID).
		Str("severity", string(event.Severity)).
		Msg("alert dispatched to telegram")
	return nil
}

// Fanout delivers each alert to every configured sink, returning the
// first error after all sinks have been attempted.
type Fanout []Notifier

// Notify dispatches to all sinks.
func (f Fanout) Notify(ctx context.Context, event rules.AlertEvent) error {
	var firstErr error
	for _, sink := range f {
		if err := sink.Notify(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func renderMessage(event rules.AlertEvent) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[%s] %s\n", strings.ToUpper(string(event.Severity)), event.Title))
	builder.WriteString(event.Message)
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Rule: %s (%s)\n", event.RuleID, event.Kind))
	builder.WriteString(fmt.Sprintf("At: %s UTC\n", event.CreatedAt.UTC().Format(time.RFC3339)))
	return builder.String()
}

var _ Notifier = (*LogNotifier)(nil)
var _ Notifier = (*TelegramNotifier)(nil)
var _ Notifier = (Fanout)(nil)
