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
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

// Watcher turns the snapshot stream into alerts on reachability changes and
// on newly degraded sections.
type Watcher struct {
	router   string
	alerters []AlertService
	logger   *slog.Logger

	seen      bool
	up        bool
	downSince time.Time
	degraded  map[string]bool
}

// NewWatcher alerts through every enabled alerter in alerters.
func NewWatcher(router string, alerters []AlertService, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		router:   router,
		alerters: alerters,
		logger:   logger.With("component", "alerts"),
		degraded: make(map[string]bool),
	}
}

// Run observes source until ctx is done or the subscription closes.
func (w *Watcher) Run(ctx context.Context, source SnapshotSource) {
	updates, unsubscribe := source.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}

			w.Observe(ctx, snap)
		}
	}
}

func healthy(snap *snapshot.Snapshot) bool {
	return snap.SessionOK && !snap.Stale
}

// Observe compares snap with the previous one and sends what changed. The
// first snapshot only alerts when the router is already down.
func (w *Watcher) Observe(ctx context.Context, snap *snapshot.Snapshot) {
	if snap == nil || snap.CycleID == "" {
		return
	}

	up := healthy(snap)

	switch {
	case !w.seen && !up, w.seen && w.up && !up:
		w.downSince = snap.CollectedAt
		w.send(ctx, &WebhookAlert{
			Level:   Error,
			Title:   "Router unreachable",
			Message: "The router stopped answering ubus calls.",
			Details: map[string]any{
				"cycle_id":     snap.CycleID,
				"session_ok":   snap.SessionOK,
				"absent_calls": len(snap.AbsentCalls),
			},
		})
	case w.seen && !w.up && up:
		details := map[string]any{"cycle_id": snap.CycleID}
		if !w.downSince.IsZero() {
			details["downtime"] = snap.CollectedAt.Sub(w.downSince).Round(time.Second).String()
		}

		w.send(ctx, &WebhookAlert{
			Level:   Info,
			Title:   "Router recovered",
			Message: "The router is answering ubus calls again.",
			Details: details,
		})
	}

	w.seen = true
	w.up = up

	if up {
		w.checkDegraded(ctx, snap)
	}
}

func (w *Watcher) checkDegraded(ctx context.Context, snap *snapshot.Snapshot) {
	current := make(map[string]bool, len(snap.Degraded))

	var added []string

	for _, name := range snap.Degraded {
		current[name] = true

		if !w.degraded[name] {
			added = append(added, name)
		}
	}

	w.degraded = current

	if len(added) == 0 {
		return
	}

	sort.Strings(added)

	w.send(ctx, &WebhookAlert{
		Level:   Warning,
		Title:   "Snapshot sections degraded",
		Message: "Some sections could not be derived from the router's answers.",
		Details: map[string]any{
			"cycle_id": snap.CycleID,
			"sections": added,
		},
	})
}

func (w *Watcher) send(ctx context.Context, alert *WebhookAlert) {
	alert.Router = w.router

	for _, a := range w.alerters {
		if !a.IsEnabled() {
			continue
		}

		err := a.Alert(ctx, alert)

		switch {
		case err == nil:
			w.logger.Info("Alert sent", "title", alert.Title)
		case errors.Is(err, errWebhookCooldown):
		default:
			w.logger.Warn("Failed to send alert", "title", alert.Title, "error", err)
		}
	}
}
