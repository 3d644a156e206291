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
	"encoding/json"
	"time"
)

const (
	// DefaultTimeout bounds a single protocol attempt.
	DefaultTimeout = 10 * time.Second

	// EmptySession is the placeholder token rpcd accepts for session.login.
	EmptySession = "00000000000000000000000000000000"

	rpcVersion    = "2.0"
	rpcMethodCall = "call"
	endpointPath  = "/ubus"
	sessionField  = "ubus_rpc_session"
)

// Protocol is the URL scheme of a transport variant.
type Protocol string

const (
	ProtocolHTTPS Protocol = "https"
	ProtocolHTTP  Protocol = "http"
)

// protocolOrder is the fixed order in which variants are attempted.
var protocolOrder = []Protocol{ProtocolHTTPS, ProtocolHTTP}

// Endpoint identifies one router and the credentials used to log in.
type Endpoint struct {
	Host     string
	Username string
	Password string
}

// CallSpec describes one remote call attempted each cycle.
type CallSpec struct {
	Namespace string
	Method    string
	Params    map[string]any
	// Optional marks methods that are frequently missing on a given firmware.
	Optional bool
}

// Key returns "namespace.method".
func (c CallSpec) Key() string {
	return c.Namespace + "." + c.Method
}

// CallResult pairs a CallSpec with its payload. OK is false when the call was
// not available this cycle.
type CallResult struct {
	Spec  CallSpec
	Value any
	OK    bool
}

// Absent builds a result carrying no value.
func Absent(spec CallSpec) CallResult {
	return CallResult{Spec: spec}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      int64             `json:"id"`
	Result  []json.RawMessage `json:"result"`
	Error   *rpcError         `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
