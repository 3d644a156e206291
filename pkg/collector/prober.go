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

package collector

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

// Prober runs the discovery calls whose targets depend on the static
// results: hostapd objects, iwinfo devices, DHCP fallbacks and thermal zones.
type Prober struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

func NewProber(fetcher *Fetcher, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}

	return &Prober{fetcher: fetcher, logger: logger.With("component", "prober")}
}

// Probe runs the discovery fan-outs with token and returns a Raw carrying
// static plus everything discovered. It waits for every probe to finish.
func (p *Prober) Probe(ctx context.Context, token string, static []ubus.CallResult) *snapshot.Raw {
	raw := &snapshot.Raw{Results: static}

	_, primaryDefinite := snapshot.PrimaryLeaseCount(snapshot.LookupResult(static, snapshot.PrimaryLeaseKey))

	var stageA errgroup.Group

	stageA.Go(func() error {
		raw.Hostapd = p.hostapd(ctx, token, static)
		return nil
	})

	stageA.Go(func() error {
		raw.Thermal = p.thermal(ctx, token)
		return nil
	})

	if !primaryDefinite {
		stageA.Go(func() error {
			raw.DHCPSecondary = p.dhcpSecondary(ctx, token, static)
			return nil
		})
	}

	_ = stageA.Wait()

	var stageB errgroup.Group

	stageB.Go(func() error {
		raw.Assoc = p.assoc(ctx, token, static, raw.Hostapd)
		return nil
	})

	if !primaryDefinite {
		if _, _, found := snapshot.SecondaryLeaseCount(raw.DHCPSecondary); !found {
			stageB.Go(func() error {
				raw.LeaseFiles = p.leaseFiles(ctx, token)
				return nil
			})
		}
	}

	_ = stageB.Wait()

	p.logger.Debug("Discovery probes finished",
		"hostapd_objects", len(raw.Hostapd),
		"assoc_devices", len(raw.Assoc),
		"dhcp_secondary", len(raw.DHCPSecondary),
		"lease_files", len(raw.LeaseFiles))

	return raw
}

func (p *Prober) hostapd(ctx context.Context, token string, static []ubus.CallResult) []ubus.CallResult {
	objects := snapshot.HostapdObjects(snapshot.ScanWirelessConfig(static))
	if len(objects) == 0 {
		return nil
	}

	specs := make([]ubus.CallSpec, len(objects))
	for i, obj := range objects {
		specs[i] = ubus.CallSpec{Namespace: obj, Method: snapshot.HostapdMethod, Optional: true}
	}

	results := p.fetcher.Batch(ctx, token, specs)
	p.fetcher.logAbsent(results)

	return results
}

func (p *Prober) assoc(ctx context.Context, token string, static, hostapd []ubus.CallResult) []ubus.CallResult {
	wireless := snapshot.CanonicalWireless(snapshot.WirelessStatus(static))
	devices := snapshot.AssocDevices(snapshot.IndexWirelessByIfname(wireless), snapshot.HostapdClientKeys(hostapd))

	if len(devices) == 0 {
		return nil
	}

	specs := make([]ubus.CallSpec, len(devices))
	for i, dev := range devices {
		specs[i] = ubus.CallSpec{
			Namespace: "iwinfo",
			Method:    "assoclist",
			Params:    map[string]any{"device": dev},
			Optional:  true,
		}
	}

	return p.fetcher.Batch(ctx, token, specs)
}

// dhcpSecondary reuses the static dhcp.leases result and fetches the rest.
func (p *Prober) dhcpSecondary(ctx context.Context, token string, static []ubus.CallResult) []ubus.CallResult {
	out := make([]ubus.CallResult, len(snapshot.SecondaryLeaseCalls))

	var (
		pending []ubus.CallSpec
		slots   []int
	)

	for i, s := range snapshot.SecondaryLeaseCalls {
		if r, ok := staticResult(static, s); ok {
			out[i] = r
			continue
		}

		pending = append(pending, s)
		slots = append(slots, i)
	}

	for j, r := range p.fetcher.Batch(ctx, token, pending) {
		out[slots[j]] = r
	}

	return out
}

// staticResult finds s among the catalogue results, absent or not.
func staticResult(static []ubus.CallResult, s ubus.CallSpec) (ubus.CallResult, bool) {
	for _, r := range static {
		if r.Spec.Key() == s.Key() && len(r.Spec.Params) == 0 {
			return r, true
		}
	}

	return ubus.CallResult{}, false
}

// leaseFiles reads the lease files in order and stops at the first with content.
func (p *Prober) leaseFiles(ctx context.Context, token string) []snapshot.LeaseFileRead {
	var out []snapshot.LeaseFileRead

	for _, path := range snapshot.LeaseFiles {
		p.logger.Debug("Reading DHCP lease file through file.exec", "path", path)

		r := p.fetcher.call(ctx, token, snapshot.LeaseFileCall(path))
		out = append(out, snapshot.LeaseFileRead{Path: path, Result: r})

		if r.OK && snapshot.LeaseFileLines(r.Value) > 0 {
			break
		}
	}

	return out
}

// thermal probes every zone concurrently. The type label is only read for
// zones whose temperature answered.
func (p *Prober) thermal(ctx context.Context, token string) []snapshot.ThermalRead {
	reads := make([]snapshot.ThermalRead, snapshot.ThermalZones)

	var g errgroup.Group
	if p.fetcher.limit > 0 {
		g.SetLimit(p.fetcher.limit)
	}

	for zone := range snapshot.ThermalZones {
		g.Go(func() error {
			read := snapshot.ThermalRead{
				Zone: zone,
				Temp: p.fetcher.call(ctx, token, snapshot.ThermalTempCall(zone)),
				Type: ubus.Absent(snapshot.ThermalTypeCall(zone)),
			}

			if _, ok := snapshot.FileData(read.Temp); ok {
				read.Type = p.fetcher.call(ctx, token, snapshot.ThermalTypeCall(zone))
			}

			reads[zone] = read

			return nil
		})
	}

	_ = g.Wait()

	return reads
}
