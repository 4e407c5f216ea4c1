package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Dispatcher creates notifications and delivers them to webhook subscribers.
type Dispatcher struct {
	store  *Store
	client *http.Client
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher backed by the given store.
func NewDispatcher(store *Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store: store,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Dispatch persists a notification and sends it to matching webhook
// subscribers. The notification is marked delivered when at least one
// subscriber accepted it. Delivery failures are logged, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	if err := d.store.Create(ctx, &n); err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	subs, err := d.store.Subscriptions(ctx, n.DocumentID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshalling notification: %w", err)
	}

	delivered := false
	for _, sub := range subs {
		if !severityMatches(n.Severity, sub.SeverityFilter) {
			continue
		}
		if err := d.SendWebhook(ctx, sub.URL, payload); err != nil {
			d.logger.Warn("webhook delivery failed",
				zap.String("subscription", sub.ID),
				zap.String("notification", n.ID),
				zap.Error(err),
			)
			continue
		}
		delivered = true
	}

	if delivered {
		return d.store.MarkDelivered(ctx, n.ID)
	}
	return nil
}

// SendWebhook POSTs payload to the given URL.
func (d *Dispatcher) SendWebhook(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "docpilot-webhook")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// severityMatches returns true if the notification severity meets or exceeds the filter threshold.
func severityMatches(actual, filter Severity) bool {
	levels := map[Severity]int{
		SeverityInfo:     0,
		SeverityWarning:  1,
		SeverityCritical: 2,
	}
	return levels[actual] >= levels[filter]
}
