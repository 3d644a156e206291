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

package grpc

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

// ServiceName is the health service reflecting poll freshness.
const ServiceName = "wrtmon.Poller"

// HealthReporter mirrors the latest snapshot into health statuses: SERVING
// while the router answers with a session and the snapshot is fresh.
type HealthReporter struct {
	health *health.Server
	logger *slog.Logger
}

// NewHealthReporter reports into hs.
func NewHealthReporter(hs *health.Server, logger *slog.Logger) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthReporter{health: hs, logger: logger.With("component", "health")}
}

// StatusFor maps a snapshot to a health status.
func StatusFor(snap *snapshot.Snapshot) healthpb.HealthCheckResponse_ServingStatus {
	if snap == nil || !snap.SessionOK || snap.Stale {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}

	return healthpb.HealthCheckResponse_SERVING
}

// Update sets both the overall and the poller status.
func (r *HealthReporter) Update(snap *snapshot.Snapshot) {
	status := StatusFor(snap)

	r.health.SetServingStatus("", status)
	r.health.SetServingStatus(ServiceName, status)
}

// Watch updates the statuses from source until ctx is done.
func (r *HealthReporter) Watch(ctx context.Context, source SnapshotSource) {
	updates, unsubscribe := source.Subscribe()
	defer unsubscribe()

	r.Update(source.Current())

	last := StatusFor(source.Current())

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}

			r.Update(snap)

			if status := StatusFor(snap); status != last {
				r.logger.Info("Health status changed", "from", last.String(), "to", status.String(), "cycle_id", snap.CycleID)
				last = status
			}
		}
	}
}
