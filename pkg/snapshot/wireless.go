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

package snapshot

import "github.com/mfreeman451/wrtmon/pkg/ubus"

const (
	uciTypeField  = ".type"
	uciWifiDevice = "wifi-device"
	uciWifiIface  = "wifi-iface"
)

// radioShape recognises one firmware's layout of a radio's status and
// extracts its interface entries.
type radioShape struct {
	name  string
	match func(v any) ([]any, bool)
}

// radioShapes are tried in order; the first match wins.
var radioShapes = []radioShape{
	{
		// radio -> {interfaces: [...]}
		name: "interfaces-list",
		match: func(v any) ([]any, bool) {
			o, ok := asObject(v)
			if !ok {
				return nil, false
			}

			l, ok := o["interfaces"].([]any)

			return l, ok
		},
	},
	{
		// radio -> {ifname: ..., ...}
		name: "single-interface",
		match: func(v any) ([]any, bool) {
			o, ok := asObject(v)
			if !ok {
				return nil, false
			}

			_, hasIfname := o["ifname"]
			_, hasName := o["name"]

			if !hasIfname && !hasName {
				return nil, false
			}

			return []any{o}, true
		},
	},
	{
		// radio -> {key: {ifname|up|mode: ...}, ...}
		name: "keyed-interfaces",
		match: func(v any) ([]any, bool) {
			o, ok := asObject(v)
			if !ok {
				return nil, false
			}

			var out []any

			for _, k := range sortedKeys(o) {
				sub, ok := asObject(o[k])
				if !ok {
					continue
				}

				_, hasIfname := sub["ifname"]
				_, hasUp := sub["up"]
				_, hasMode := sub["mode"]

				if hasIfname || hasUp || hasMode {
					out = append(out, sub)
				}
			}

			return out, true
		},
	},
	{
		// radio -> [...]
		name: "bare-list",
		match: asList,
	},
}

// radioInterfaces applies the shape matchers to one radio's status.
func radioInterfaces(v any) []Object {
	for _, shape := range radioShapes {
		entries, ok := shape.match(v)
		if !ok {
			continue
		}

		cleaned := make([]Object, 0, len(entries))

		for _, e := range entries {
			if o, ok := asObject(e); ok {
				cleaned = append(cleaned, o)
			}
		}

		return cleaned
	}

	return nil
}

// CanonicalWireless rewrites wireless status in any known shape into
// radio -> {interfaces: [...]}. Radios without dict-shaped interfaces are dropped.
func CanonicalWireless(status any) map[string]Radio {
	out := map[string]Radio{}

	radios, ok := asObject(status)
	if !ok {
		return out
	}

	for radio, data := range radios {
		if ifaces := radioInterfaces(data); len(ifaces) > 0 {
			out[radio] = Radio{Interfaces: ifaces}
		}
	}

	return out
}

// WirelessStatus picks the primary wireless status, substituting the dump
// output when the primary is empty.
func WirelessStatus(results []ubus.CallResult) any {
	primary := lookupObject(results, "network.wireless.status")
	if len(primary) == 0 {
		if dump := lookupObject(results, "network.wireless.dump"); len(dump) > 0 {
			return dump
		}
	}

	return primary
}

// IndexWirelessByIfname keys every canonical interface by ifname, name or
// device, tagging each entry with its radio.
func IndexWirelessByIfname(wireless map[string]Radio) map[string]Object {
	out := map[string]Object{}

	for _, radio := range sortedKeys(wireless) {
		for _, iface := range wireless[radio].Interfaces {
			name := firstString(iface, "ifname", "name", "device")
			if name == "" {
				continue
			}

			entry := copyObject(iface)
			entry["radio"] = radio
			out[name] = entry
		}
	}

	return out
}

// ScanWirelessConfig merges every UCI-style result that carries wifi-device
// or wifi-iface sections under "values". Later results override earlier ones.
func ScanWirelessConfig(results []ubus.CallResult) map[string]Object {
	out := map[string]Object{}

	for _, r := range results {
		if !r.OK {
			continue
		}

		res, ok := asObject(r.Value)
		if !ok {
			continue
		}

		values, ok := asObject(res["values"])
		if !ok || !hasWifiSection(values) {
			continue
		}

		for name, entry := range values {
			if o, ok := asObject(entry); ok {
				out[name] = o
			}
		}
	}

	return out
}

func hasWifiSection(values Object) bool {
	for _, v := range values {
		o, ok := asObject(v)
		if !ok {
			continue
		}

		if t := o[uciTypeField]; t == uciWifiDevice || t == uciWifiIface {
			return true
		}
	}

	return false
}

// ProjectWifiIfaces indexes wifi-iface sections by section name, carrying
// name, device and ssid ahead of the original fields.
func ProjectWifiIfaces(config map[string]Object) map[string]Object {
	out := map[string]Object{}

	for name, entry := range config {
		if entry[uciTypeField] != uciWifiIface {
			continue
		}

		projected := Object{
			"name":   name,
			"device": entry["device"],
			"ssid":   entry["ssid"],
		}

		for k, v := range entry {
			projected[k] = v
		}

		out[name] = projected
	}

	return out
}
