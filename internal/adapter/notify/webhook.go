package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const sendTimeout = 10 * time.Second

// maxLoggedBody caps how much of a rejected response is logged.
const maxLoggedBody = 4 << 10

type slackMessage struct {
	Text string `json:"text"`
}

type discordMessage struct {
	Content string `json:"content"`
}

// WebhookNotifier posts messages to a Slack or Discord incoming webhook.
type WebhookNotifier struct {
	kind   string
	url    string
	client *http.Client
	log    logrus.FieldLogger
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier for kind "slack" or "discord".
func NewWebhookNotifier(kind, url string, log logrus.FieldLogger) *WebhookNotifier {
	return &WebhookNotifier{
		kind:   kind,
		url:    url,
		client: &http.Client{Timeout: sendTimeout},
		log:    log,
	}
}

func (w *WebhookNotifier) encode(message string) ([]byte, error) {
	switch w.kind {
	case "slack":
		return json.Marshal(slackMessage{Text: message})
	case "discord":
		return json.Marshal(discordMessage{Content: message})
	default:
		return nil, fmt.Errorf("unsupported webhook notify type %q", w.kind)
	}
}

// Notify posts message. Any non-2xx answer is an error.
func (w *WebhookNotifier) Notify(ctx context.Context, message string) error {
	body, err := w.encode(message)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post to %s webhook: %w", w.kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	w.log.WithFields(logrus.Fields{
		"type":   w.kind,
		"status": resp.Status,
		"body":   string(detail),
	}).Warn("notify: webhook rejected message")
	return fmt.Errorf("notify: %s webhook returned status %s", w.kind, resp.Status)
}
