// Package webhook fans out signed event notifications to project-registered
// endpoints. Delivery is detached from the triggering request: failures are
// logged, never retried, and never surface to the caller.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/domain"
)

const deliveryTimeout = 5 * time.Second

// Envelope is the JSON body POSTed to webhook endpoints.
type Envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	ProjectID int64     `json:"projectId"`
	Data      any       `json:"data"`
}

// Dispatcher delivers events to matching webhook subscriptions.
type Dispatcher struct {
	httpClient *http.Client
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewDispatcher constructs a dispatcher. A nil client gets a default with
// the delivery timeout.
func NewDispatcher(client *http.Client, logger *zap.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: deliveryTimeout}
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Dispatcher{httpClient: client, logger: logger}
}

// Publish delivers the event to every active subscription of the project
// that includes the event name. It returns immediately; deliveries run as
// detached tasks.
func (d *Dispatcher) Publish(project domain.Project, event string, data any) {
	var matched []domain.Webhook
	for _, hook := range project.Webhooks {
		if hook.IsActive && subscribed(hook, event) {
			matched = append(matched, hook)
		}
	}
	if len(matched) == 0 {
		return
	}

	body, err := json.Marshal(Envelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		ProjectID: project.ID,
		Data:      data,
	})
	if err != nil {
		d.logger.Error("webhook envelope marshal failed",
			zap.Int64("project_id", project.ID), zap.String("event", event), zap.Error(err))
		return
	}

	for _, hook := range matched {
		hook := hook
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.deliver(hook, event, body)
		}()
	}
}

// Wait blocks until all in-flight deliveries finish. Used at shutdown and in
// tests; the request path never calls it.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(hook domain.Webhook, event string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		d.logger.Warn("webhook request build failed",
			zap.Int64("webhook_id", hook.ID), zap.String("event", event), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event", event)
	req.Header.Set("X-Signature", Sign(hook.Secret, body))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Warn("webhook delivery failed",
			zap.Int64("webhook_id", hook.ID), zap.String("event", event), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.logger.Warn("webhook delivery rejected",
			zap.Int64("webhook_id", hook.ID), zap.String("event", event), zap.Int("status", resp.StatusCode))
	}
}

// Sign computes the hex HMAC-SHA256 signature for a webhook body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func subscribed(hook domain.Webhook, event string) bool {
	for _, name := range hook.Events {
		if name == event {
			return true
		}
	}
	return false
}
