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
	"fmt"
	"io"
	"log/slog"

	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

// Normalizer derives Snapshots from raw cycle results. It holds no state
// between calls.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer returns a Normalizer that logs degraded sections at debug.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Normalizer{logger: logger.With("component", "normalizer")}
}

var silent = NewNormalizer(nil)

// Normalize is Normalizer.Normalize without logging.
func Normalize(raw *Raw, prev *Snapshot) *Snapshot {
	return silent.Normalize(raw, prev)
}

// Normalize builds the Snapshot for raw. prev is only used for rates and may
// be nil. The same inputs always produce an identical Snapshot and the
// method never panics.
func (n *Normalizer) Normalize(raw *Raw, prev *Snapshot) *Snapshot {
	snap := Empty()
	if raw == nil {
		return snap
	}

	d := &derivation{logger: n.logger}
	results := raw.Results

	snap.CollectedAt = raw.CollectedAt
	snap.SessionOK = raw.SessionOK
	snap.AbsentCalls = absentCalls(results)

	snap.SystemBoard = lookupObject(results, "system.board")
	snap.CPUCount = derive(d, "cpu_count", defaultCPUCount, func() (int, error) {
		return CPUCount(snap.SystemBoard), nil
	})

	n.systemInfo(d, snap, results)

	for _, p := range passthrough {
		snap.Sections[p.Section] = lookupObject(results, p.Key)
	}

	snap.Interfaces = derive(d, "interfaces", map[string]Object{}, func() (map[string]Object, error) {
		return interfacesByName(lookupObject(results, "network.interface.dump"))
	})
	snap.Devices = lookupObject(results, "network.device.status")

	snap.WirelessConfig = derive(d, "wireless_config", map[string]Object{}, func() (map[string]Object, error) {
		return ScanWirelessConfig(results), nil
	})
	snap.WirelessConfigByName = derive(d, "wireless_config_by_name", map[string]Object{}, func() (map[string]Object, error) {
		return ProjectWifiIfaces(snap.WirelessConfig), nil
	})
	snap.Wireless = derive(d, "wireless", map[string]Radio{}, func() (map[string]Radio, error) {
		return CanonicalWireless(WirelessStatus(results)), nil
	})
	snap.WirelessByIfname = derive(d, "wireless_by_ifname", map[string]Object{}, func() (map[string]Object, error) {
		return IndexWirelessByIfname(snap.Wireless), nil
	})

	clients := derive(d, "clients", clientCounts{clients: map[string]any{}, iwByDevice: map[string]int{}},
		func() (clientCounts, error) {
			return countClients(raw.Hostapd, raw.Assoc), nil
		})
	snap.Clients = clients.clients
	snap.ClientsCount = clients.clientsCount
	snap.IWClientsByDevice = clients.iwByDevice
	snap.IWClientsCount = clients.iwCount

	leases := derive(d, "dhcp_leases_count", leaseSummary{}, func() (leaseSummary, error) {
		return countLeases(lookup(results, PrimaryLeaseKey), raw.DHCPSecondary, raw.LeaseFiles), nil
	})
	snap.DHCPLeasesCount = leases.count
	snap.DHCPLeasesSource = leases.source
	snap.DHCPLeasesRaw = leases.raw

	snap.Temperatures = derive(d, "temperatures", map[string]Temperature{}, func() (map[string]Temperature, error) {
		return readTemperatures(raw.Thermal), nil
	})

	snap.Rates = derive(d, "rates", map[string]Rate{}, func() (map[string]Rate, error) {
		return computeRates(snap, prev), nil
	})

	if d.degraded != nil {
		snap.Degraded = d.degraded
	}

	return snap
}

// systemInfo fills the sections derived from system.info.
func (n *Normalizer) systemInfo(d *derivation, snap *Snapshot, results []ubus.CallResult) {
	info := lookupObject(results, "system.info")
	snap.SystemInfo = info

	snap.Memory = derive(d, "memory", Memory{}, func() (Memory, error) {
		return memoryMB(info)
	})
	snap.Load = derive(d, "load", [3]float64{}, func() ([3]float64, error) {
		return loadPercent(info)
	})
	snap.UptimeSeconds = derive(d, "uptime", 0.0, func() (float64, error) {
		v, ok := info["uptime"]
		if !ok {
			return 0, nil
		}

		f, ok := asFloat(v)
		if !ok {
			return 0, fmt.Errorf("%w: uptime is %T", ErrUnexpectedShape, v)
		}

		return f, nil
	})

	snap.RootFS = objectField(info, "root")
	snap.TmpFS = objectField(info, "tmp")
	snap.Swap = objectField(info, "swap")
}

func memoryMB(info Object) (Memory, error) {
	v, ok := info["memory"]
	if !ok {
		return Memory{}, nil
	}

	mem, ok := asObject(v)
	if !ok {
		return Memory{}, fmt.Errorf("%w: memory is %T", ErrUnexpectedShape, v)
	}

	field := func(key string) float64 {
		f, _ := asFloat(mem[key])
		return BytesToMB(f)
	}

	return Memory{
		TotalMB:     field("total"),
		FreeMB:      field("free"),
		SharedMB:    field("shared"),
		BufferedMB:  field("buffered"),
		AvailableMB: field("available"),
		CachedMB:    field("cached"),
	}, nil
}

func loadPercent(info Object) ([3]float64, error) {
	var out [3]float64

	v, ok := info["load"]
	if !ok {
		return out, nil
	}

	samples, ok := asList(v)
	if !ok {
		return out, fmt.Errorf("%w: load is %T", ErrUnexpectedShape, v)
	}

	// a bad sample defaults on its own; the others stay usable
	for i := 0; i < len(out) && i < len(samples); i++ {
		if f, ok := asFloat(samples[i]); ok {
			out[i] = LoadPercent(f)
		}
	}

	return out, nil
}

// interfacesByName re-keys the interface dump by each entry's own name.
func interfacesByName(dump Object) (map[string]Object, error) {
	out := map[string]Object{}

	v, ok := dump["interface"]
	if !ok {
		return out, nil
	}

	list, ok := asList(v)
	if !ok {
		return out, fmt.Errorf("%w: interface is %T", ErrUnexpectedShape, v)
	}

	for _, item := range list {
		iface, ok := asObject(item)
		if !ok {
			continue
		}

		name, _ := asString(iface["interface"])
		if name == "" {
			name = "unknown"
		}

		out[name] = iface
	}

	return out, nil
}

// lookup returns the first successful result for key, or an absent result.
func lookup(results []ubus.CallResult, key string) ubus.CallResult {
	for _, r := range results {
		if r.OK && r.Spec.Key() == key {
			return r
		}
	}

	return ubus.CallResult{}
}

// lookupObject returns the object payload for key, or an empty object.
func lookupObject(results []ubus.CallResult, key string) Object {
	if o, ok := asObject(lookup(results, key).Value); ok {
		return o
	}

	return Object{}
}

// LookupResult exposes lookup for the discovery probes.
func LookupResult(results []ubus.CallResult, key string) ubus.CallResult {
	return lookup(results, key)
}

func objectField(o Object, key string) Object {
	if v, ok := asObject(o[key]); ok {
		return v
	}

	return Object{}
}

func absentCalls(results []ubus.CallResult) []string {
	out := []string{}

	for _, r := range results {
		if !r.OK {
			out = append(out, r.Spec.Key())
		}
	}

	return out
}
