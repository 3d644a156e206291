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

// Package collector gathers one cycle of ubus data: the static catalogue
// fan-out followed by the discovery probes.
package collector

import (
	"strings"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

func spec(ns, method string, optional bool) ubus.CallSpec {
	return ubus.CallSpec{Namespace: ns, Method: method, Optional: optional}
}

// DefaultCatalogue returns the calls issued every cycle. Methods with side
// effects (network.reload, network.wireless.reload) are not included.
func DefaultCatalogue() []ubus.CallSpec {
	return []ubus.CallSpec{
		// system
		spec("system", "board", false),
		spec("system", "info", false),
		spec("system", "processes", true),
		spec("system", "uptime", true),
		spec("system", "load", true),
		spec("system", "memory", true),
		spec("system", "swap", true),
		spec("system", "cpu", true),

		// network
		spec("network.interface", "dump", false),
		spec("network.device", "status", false),
		spec("network.wireless", "status", true),
		spec("network", "status", true),

		// services
		spec("service", "list", false),
		spec("service", "running", true),

		spec("log", "read", true),
		spec("ubus", "list", true),

		spec("system", "led", true),
		spec("system", "watchdog", true),
		spec("system", "sysupgrade", true),
		spec("system", "upgrade", true),

		spec("network", "dump", true),
		spec("network.interface", "status", true),
		spec("network.device", "dump", true),

		// firewall and dhcp
		spec("firewall", "status", true),
		spec("firewall", "dump", true),
		spec("dhcp", "status", true),
		spec("dhcp", "leases", true),

		spec("network.wireless", "dump", true),

		spec("system", "monitor", true),
		spec("system", "stats", true),

		// UCI wireless config, tried three ways
		{Namespace: "uci", Method: "get_all", Params: map[string]any{"config": "wireless"}, Optional: true},
		{Namespace: "uci", Method: "get", Params: map[string]any{"config": "wireless"}, Optional: true},
		{Namespace: "uci", Method: "show", Params: map[string]any{"package": "wireless"}, Optional: true},

		spec("luci-rpc", "getDHCPLeases", true),
	}
}

// quiet reports whether absence of spec is expected and should stay at debug.
func quiet(s ubus.CallSpec) bool {
	if s.Optional {
		return true
	}

	return strings.HasPrefix(s.Namespace, "hostapd.") && s.Method == snapshot.HostapdMethod
}
