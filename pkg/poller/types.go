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

// Package poller drives the periodic collect and normalise cycle and
// publishes the resulting snapshots.
package poller

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidConfig   = errors.New("invalid poller config")
	ErrAlreadyRunning  = errors.New("poller already running")
	ErrNotRunning      = errors.New("poller not running")
	ErrRefreshLimited  = errors.New("refresh rate limited")
	ErrNoSession       = errors.New("no ubus session")
	ErrNothingAnswered = errors.New("no call answered")
	ErrCyclePanic      = errors.New("cycle panicked")

	errUnknownState = errors.New("unknown poller state")
)

// State is the poll loop phase.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateNormalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateNormalizing:
		return "normalizing"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StateIdle
	case "fetching":
		*s = StateFetching
	case "normalizing":
		*s = StateNormalizing
	default:
		return fmt.Errorf("%w: %q", errUnknownState, b)
	}

	return nil
}

// Status summarises the loop for operators.
type Status struct {
	Running             bool          `json:"running"`
	State               State         `json:"state"`
	Stale               bool          `json:"stale"`
	SessionOK           bool          `json:"session_ok"`
	Cycles              uint64        `json:"cycles"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastCycleID         string        `json:"last_cycle_id,omitempty"`
	LastStarted         time.Time     `json:"last_started,omitempty"`
	LastDuration        time.Duration `json:"last_duration_ns"`
	LastSuccess         time.Time     `json:"last_success,omitempty"`
	LastError           string        `json:"last_error,omitempty"`
	Interval            time.Duration `json:"interval_ns"`
	FailurePolicy       string        `json:"failure_policy"`
}
