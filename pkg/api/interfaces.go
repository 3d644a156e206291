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

package api

import (
	"context"

	"github.com/mfreeman451/wrtmon/pkg/control"
	"github.com/mfreeman451/wrtmon/pkg/metrics"
	"github.com/mfreeman451/wrtmon/pkg/poller"
	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

//go:generate mockgen -destination=mock_api.go -package=api github.com/mfreeman451/wrtmon/pkg/api SnapshotProvider,Controller

// SnapshotProvider is the read side of the poll loop.
type SnapshotProvider interface {
	Current() *snapshot.Snapshot
	Subscribe() (<-chan *snapshot.Snapshot, func())
	Status() poller.Status
	History() []metrics.CyclePoint
	Refresh() error
}

// Controller runs router control actions.
type Controller interface {
	InterfaceUp(ctx context.Context, iface string) (control.Result, error)
	InterfaceDown(ctx context.Context, iface string) (control.Result, error)
	RestartInterface(ctx context.Context, iface string) (control.Result, error)
	Reboot(ctx context.Context) (control.Result, error)
}
