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

import (
	"sort"
	"strings"

	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

const (
	hostapdPrefix = "hostapd."
	// HostapdMethod enumerates stations on a hostapd object.
	HostapdMethod = "get_clients"
	apSuffix      = "-ap0"
)

// HostapdObjects derives hostapd object names from UCI wifi-iface devices:
// radioN yields hostapd.phyN-ap0 and hostapd.phyN, and every device yields
// hostapd.<device>. The result is sorted.
func HostapdObjects(config map[string]Object) []string {
	set := map[string]struct{}{}

	for _, entry := range config {
		if entry[uciTypeField] != uciWifiIface {
			continue
		}

		dev, _ := asString(entry["device"])
		if dev == "" {
			continue
		}

		if idx, ok := radioIndex(dev); ok {
			set[hostapdPrefix+"phy"+idx+apSuffix] = struct{}{}
			set[hostapdPrefix+"phy"+idx] = struct{}{}
		}

		set[hostapdPrefix+dev] = struct{}{}
	}

	return sortedKeys(set)
}

// radioIndex returns N for a device named radioN.
func radioIndex(dev string) (string, bool) {
	idx, ok := strings.CutPrefix(dev, "radio")
	if !ok || idx == "" {
		return "", false
	}

	for _, r := range idx {
		if r < '0' || r > '9' {
			return "", false
		}
	}

	return idx, true
}

// hostapdClients extracts the station collection from a get_clients payload.
func hostapdClients(v any) (any, bool) {
	res, ok := asObject(v)
	if !ok || len(res) == 0 {
		return nil, false
	}

	for _, key := range []string{"clients", "stations", "clients_list"} {
		if truthy(res[key]) {
			return res[key], true
		}
	}

	return []any{}, true
}

// StationCount counts a station list or a station map keyed by MAC.
func StationCount(v any) int {
	switch c := v.(type) {
	case []any:
		return len(c)
	case map[string]any:
		return len(c)
	}

	return 0
}

// HostapdClientKeys returns the object suffixes of hostapd calls that
// answered with a usable payload, sorted.
func HostapdClientKeys(results []ubus.CallResult) []string {
	var keys []string

	for _, r := range results {
		if !r.OK {
			continue
		}

		if _, ok := hostapdClients(r.Value); ok {
			keys = append(keys, strings.TrimPrefix(r.Spec.Namespace, hostapdPrefix))
		}
	}

	sort.Strings(keys)

	return keys
}

// AssocDevices lists the devices to probe with iwinfo.assoclist: every
// device from the wireless index with an -ap0 variant, plus the given
// hostapd keys. The result is sorted.
func AssocDevices(byIfname map[string]Object, hostapdKeys []string) []string {
	set := map[string]struct{}{}

	for _, entry := range byIfname {
		dev := firstString(entry, "device", "ifname", "name")
		if dev == "" {
			continue
		}

		set[dev] = struct{}{}
		set[dev+apSuffix] = struct{}{}
	}

	for _, k := range hostapdKeys {
		set[k] = struct{}{}
	}

	return sortedKeys(set)
}

// assocCount counts associated stations in an iwinfo.assoclist payload.
func assocCount(v any) int {
	switch res := v.(type) {
	case []any:
		return len(res)
	case map[string]any:
		for _, key := range []string{"assoclist", "stations"} {
			if l, ok := res[key].([]any); ok {
				return len(l)
			}
		}

		if l, ok := firstList(res); ok {
			return len(l)
		}
	}

	return 0
}

type clientCounts struct {
	clients      map[string]any
	clientsCount int
	iwByDevice   map[string]int
	iwCount      int
}

func countClients(hostapd, assoc []ubus.CallResult) clientCounts {
	out := clientCounts{
		clients:    map[string]any{},
		iwByDevice: map[string]int{},
	}

	for _, r := range hostapd {
		if !r.OK {
			continue
		}

		stations, ok := hostapdClients(r.Value)
		if !ok {
			continue
		}

		key := strings.TrimPrefix(r.Spec.Namespace, hostapdPrefix)
		out.clients[key] = stations
	}

	for _, stations := range out.clients {
		out.clientsCount += StationCount(stations)
	}

	for _, r := range assoc {
		if !r.OK || !truthy(r.Value) {
			continue
		}

		dev, _ := asString(r.Spec.Params["device"])
		if dev == "" {
			continue
		}

		if n := assocCount(r.Value); n > 0 {
			out.iwByDevice[dev] = n
			out.iwCount += n
		}
	}

	return out
}
