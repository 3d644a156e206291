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

package poller

import (
	"context"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

//go:generate mockgen -destination=mock_poller.go -package=poller github.com/mfreeman451/wrtmon/pkg/poller Collector,Normalizer

// Collector gathers one cycle of raw results.
type Collector interface {
	Collect(ctx context.Context) *snapshot.Raw
}

// Normalizer turns raw results into a snapshot.
type Normalizer interface {
	Normalize(raw *snapshot.Raw, prev *snapshot.Snapshot) *snapshot.Snapshot
}
