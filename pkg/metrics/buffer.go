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

import (
	"sync"
	"time"
)

// CyclePoint records the outcome of one poll cycle.
type CyclePoint struct {
	CycleID     string        `json:"cycle_id"`
	Started     time.Time     `json:"started"`
	Duration    time.Duration `json:"duration_ns"`
	Calls       int           `json:"calls"`
	AbsentCalls int           `json:"absent_calls"`
	SessionOK   bool          `json:"session_ok"`
	Failed      bool          `json:"failed"`
	Error       string        `json:"error,omitempty"`
}

// RingBuffer is a fixed-size HistoryStore; once full, the oldest point is
// overwritten.
type RingBuffer struct {
	mu     sync.RWMutex
	points []CyclePoint
	pos    int
	count  int
}

// NewBuffer creates a HistoryStore holding size points.
func NewBuffer(size int) HistoryStore {
	if size < 1 {
		size = 1
	}

	return &RingBuffer{points: make([]CyclePoint, size)}
}

// Add appends a point.
func (b *RingBuffer) Add(point CyclePoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.points[b.pos] = point
	b.pos = (b.pos + 1) % len(b.points)

	if b.count < len(b.points) {
		b.count++
	}
}

// GetPoints returns the stored points, oldest first.
func (b *RingBuffer) GetPoints() []CyclePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]CyclePoint, b.count)
	start := (b.pos - b.count + len(b.points)) % len(b.points)

	for i := 0; i < b.count; i++ {
		out[i] = b.points[(start+i)%len(b.points)]
	}

	return out
}

// GetLastPoint returns the newest point, or nil when empty.
func (b *RingBuffer) GetLastPoint() *CyclePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return nil
	}

	p := b.points[(b.pos-1+len(b.points))%len(b.points)]

	return &p
}
