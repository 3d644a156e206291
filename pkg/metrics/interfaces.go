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

package metrics

import "github.com/mfreeman451/wrtmon/pkg/snapshot"

//go:generate mockgen -destination=mock_metrics.go -package=metrics github.com/mfreeman451/wrtmon/pkg/metrics HistoryStore,SnapshotSource

// HistoryStore keeps the most recent poll cycles.
type HistoryStore interface {
	Add(point CyclePoint)
	GetPoints() []CyclePoint
	GetLastPoint() *CyclePoint
}

// SnapshotSource hands out the current snapshot.
type SnapshotSource interface {
	Current() *snapshot.Snapshot
}
