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

package ubus

import (
	"errors"
	"fmt"
)

var (
	ErrHostRequired      = errors.New("ubus host is required")
	ErrBadStatus         = errors.New("unexpected HTTP status")
	ErrMalformedResponse = errors.New("malformed ubus response")
	ErrShortResult       = errors.New("ubus result carries no payload")
	ErrRPCError          = errors.New("ubus returned a JSON-RPC error")
	ErrNoSessionField    = errors.New("login response has no session id")
	ErrCannotConnect     = errors.New("cannot connect to ubus endpoint")
	ErrInvalidAuth       = errors.New("ubus login rejected")
)

// CallError wraps a single failed protocol attempt with its context. It is
// only ever logged; Transport reports absence, not errors.
type CallError struct {
	Op       string
	Host     string
	Protocol Protocol
	Wrapped  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("ubus %s via %s failed for host %s: %v", e.Op, e.Protocol, e.Host, e.Wrapped)
}

func (e *CallError) Unwrap() error {
	return e.Wrapped
}
