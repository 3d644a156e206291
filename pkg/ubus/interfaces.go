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

// Package ubus pkg/ubus/interfaces.go
package ubus

import "context"

//go:generate mockgen -destination=mock_ubus.go -package=ubus github.com/mfreeman451/wrtmon/pkg/ubus Transport,Sessions,Caller

// Transport issues a single authenticated ubus call.
type Transport interface {
	// Call returns the payload of result[1] and true, or nil and false when
	// every protocol variant failed.
	Call(ctx context.Context, token, namespace, method string, params map[string]any) (any, bool)
}

// Sessions owns the ubus session token.
type Sessions interface {
	// EnsureSession returns the cached token, logging in first when none is held.
	EnsureSession(ctx context.Context) (string, bool)
	// Invalidate drops the cached token so the next EnsureSession logs in again.
	Invalidate()
}

// Caller is the session-aware call surface used by control actions.
type Caller interface {
	Call(ctx context.Context, namespace, method string, params map[string]any) (any, bool)
}
