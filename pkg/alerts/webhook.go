/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/mfreeman451/wrtmon/pkg/config"
)

var (
	errWebhookDisabled   = errors.New("webhook alerter is disabled")
	errWebhookCooldown   = errors.New("alert is within cooldown period")
	errInvalidJSON       = errors.New("invalid JSON generated")
	errWebhookStatus     = errors.New("webhook returned non-2xx status")
	errTemplateParse     = errors.New("template parsing failed")
	errTemplateExecution = errors.New("template execution failed")
)

const webhookTimeout = 10 * time.Second

type AlertLevel string

const (
	Info    AlertLevel = "info"
	Warning AlertLevel = "warning"
	Error   AlertLevel = "error"
)

type WebhookAlert struct {
	Level     AlertLevel     `json:"level"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Router    string         `json:"router"`
	Details   map[string]any `json:"details,omitempty"`
}

type WebhookAlerter struct {
	config         config.WebhookConfig
	template       *template.Template
	client         *http.Client
	logger         *slog.Logger
	now            func() time.Time
	lastAlertTimes map[string]time.Time
	mu             sync.Mutex
	bufferPool     *sync.Pool
}

// NewWebhookAlerter parses the optional template up front so a broken one
// fails at startup.
func NewWebhookAlerter(cfg config.WebhookConfig, logger *slog.Logger) (*WebhookAlerter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w := &WebhookAlerter{
		config:         cfg,
		client:         &http.Client{Timeout: webhookTimeout},
		logger:         logger.With("component", "alerts", "url", cfg.URL),
		now:            time.Now,
		lastAlertTimes: make(map[string]time.Time),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}

	body := cfg.Template
	if cfg.Format == config.WebhookFormatDiscord {
		body = DiscordTemplate
	}

	if body != "" {
		tmpl, err := template.New("webhook").Funcs(w.templateFuncs()).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errTemplateParse, err)
		}

		w.template = tmpl
	}

	return w, nil
}

func (w *WebhookAlerter) IsEnabled() bool {
	return w.config.Enabled
}

func (w *WebhookAlerter) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"json": func(v interface{}) (string, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("JSON marshaling failed: %w", err)
			}

			return string(b), nil
		},
	}
}

func (w *WebhookAlerter) Alert(ctx context.Context, alert *WebhookAlert) error {
	if !w.IsEnabled() {
		w.logger.Debug("Webhook alerter disabled, skipping alert", "title", alert.Title)
		return errWebhookDisabled
	}

	if err := w.checkCooldown(alert.Title); err != nil {
		return err
	}

	if alert.Timestamp == "" {
		alert.Timestamp = w.now().UTC().Format(time.RFC3339)
	}

	payload, err := w.preparePayload(alert)
	if err != nil {
		return fmt.Errorf("failed to prepare payload: %w", err)
	}

	return w.sendRequest(ctx, payload)
}

func (w *WebhookAlerter) checkCooldown(title string) error {
	cooldown := time.Duration(w.config.Cooldown)
	if cooldown <= 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()

	last, exists := w.lastAlertTimes[title]
	if exists && now.Sub(last) < cooldown {
		w.logger.Debug("Alert is within cooldown period, skipping", "title", title)
		return errWebhookCooldown
	}

	w.lastAlertTimes[title] = now

	return nil
}

func (w *WebhookAlerter) preparePayload(alert *WebhookAlert) ([]byte, error) {
	if w.template == nil {
		return json.Marshal(alert)
	}

	buf := w.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer w.bufferPool.Put(buf)

	if err := w.template.Execute(buf, map[string]interface{}{"alert": alert}); err != nil {
		return nil, fmt.Errorf("%w: %w", errTemplateExecution, err)
	}

	if !json.Valid(buf.Bytes()) {
		return nil, errInvalidJSON
	}

	return append([]byte(nil), buf.Bytes()...), nil
}

func (w *WebhookAlerter) sendRequest(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	w.setHeaders(req)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			w.logger.Debug("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("%w: status=%d body=%s", errWebhookStatus, resp.StatusCode, body)
	}

	return nil
}

func (w *WebhookAlerter) setHeaders(req *http.Request) {
	hasContentType := false

	for key, value := range w.config.Headers {
		if strings.EqualFold(key, "content-type") {
			hasContentType = true
		}

		req.Header.Set(key, value)
	}

	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}
}
