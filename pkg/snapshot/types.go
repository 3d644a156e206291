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

// Package snapshot turns one cycle of raw ubus results into a canonical,
// always-complete Snapshot.
package snapshot

import (
	"time"

	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

// Object is a decoded JSON object as returned by ubus.
type Object = map[string]any

// Raw is everything a cycle collected: the static catalogue results in
// catalogue order plus the outcome of the discovery probes.
type Raw struct {
	CollectedAt time.Time
	SessionOK   bool

	// Results is index-aligned with the catalogue that produced it.
	Results []ubus.CallResult

	// Hostapd holds one get_clients result per hostapd object, sorted by namespace.
	Hostapd []ubus.CallResult
	// Assoc holds one iwinfo.assoclist result per probed device, sorted by device.
	Assoc []ubus.CallResult
	// DHCPSecondary holds the secondary lease-list calls in fallback order.
	DHCPSecondary []ubus.CallResult
	// LeaseFiles holds lease file reads in fallback order.
	LeaseFiles []LeaseFileRead
	// Thermal holds one entry per probed zone, ordered by zone.
	Thermal []ThermalRead
}

// LeaseFileRead is the result of cat-ing one lease file through file.exec.
type LeaseFileRead struct {
	Path   string
	Result ubus.CallResult
}

// ThermalRead carries the temperature and type reads of one thermal zone.
// Type is only attempted when Temp came back.
type ThermalRead struct {
	Zone int
	Temp ubus.CallResult
	Type ubus.CallResult
}

// Memory is system.info memory converted to megabytes.
type Memory struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	SharedMB    float64 `json:"shared_mb"`
	BufferedMB  float64 `json:"buffered_mb"`
	AvailableMB float64 `json:"available_mb"`
	CachedMB    float64 `json:"cached_mb"`
}

// Radio is the canonical wireless shape: every radio lists its interfaces.
type Radio struct {
	Interfaces []Object `json:"interfaces"`
}

// Temperature is one readable thermal zone.
type Temperature struct {
	Label   string  `json:"label"`
	Celsius float64 `json:"celsius"`
	Raw     string  `json:"raw"`
	Zone    int     `json:"zone"`
}

// Rate pairs an interface present in both the current and previous snapshot.
type Rate struct {
	Interface      string  `json:"interface"`
	Device         string  `json:"device,omitempty"`
	RxBytesPerSec  float64 `json:"rx_bytes_per_sec"`
	TxBytesPerSec  float64 `json:"tx_bytes_per_sec"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Snapshot is one cycle's normalised output. Every section is always present
// and defaults to an empty value.
type Snapshot struct {
	CycleID     string    `json:"cycle_id,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
	Stale       bool      `json:"stale"`
	SessionOK   bool      `json:"session_ok"`
	AbsentCalls []string  `json:"absent_calls"`
	Degraded    []string  `json:"degraded"`

	SystemBoard   Object     `json:"system_board"`
	SystemInfo    Object     `json:"system_info"`
	Memory        Memory     `json:"memory"`
	Load          [3]float64 `json:"load"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	RootFS        Object     `json:"rootfs"`
	TmpFS         Object     `json:"tmpfs"`
	Swap          Object     `json:"swap"`
	CPUCount      int        `json:"cpu_count"`

	Interfaces           map[string]Object `json:"interfaces"`
	Devices              Object            `json:"devices"`
	Wireless             map[string]Radio  `json:"wireless"`
	WirelessConfig       map[string]Object `json:"wireless_config"`
	WirelessConfigByName map[string]Object `json:"wireless_config_by_name"`
	WirelessByIfname     map[string]Object `json:"wireless_by_ifname"`

	Clients           map[string]any `json:"clients"`
	ClientsCount      int            `json:"clients_count"`
	IWClientsByDevice map[string]int `json:"iw_clients_by_device"`
	IWClientsCount    int            `json:"iw_clients_count"`

	DHCPLeasesCount  int    `json:"dhcp_leases_count"`
	DHCPLeasesSource string `json:"dhcp_leases_source,omitempty"`
	DHCPLeasesRaw    any    `json:"dhcp_leases_raw,omitempty"`

	Temperatures map[string]Temperature `json:"temperatures"`
	Rates        map[string]Rate        `json:"rates"`

	// Sections holds the pass-through objects keyed by section name.
	Sections map[string]Object `json:"sections"`
}

// passthrough maps section names to the catalogue call whose object result
// is copied verbatim.
var passthrough = []struct {
	Section string
	Key     string
}{
	{"processes", "system.processes"},
	{"system_uptime", "system.uptime"},
	{"system_load", "system.load"},
	{"system_memory", "system.memory"},
	{"system_swap", "system.swap"},
	{"system_cpu", "system.cpu"},
	{"network_status", "network.status"},
	{"services", "service.list"},
	{"running_services", "service.running"},
	{"logs", "log.read"},
	{"ubus_services", "ubus.list"},
	{"leds", "system.led"},
	{"watchdog", "system.watchdog"},
	{"sysupgrade", "system.sysupgrade"},
	{"upgrade", "system.upgrade"},
	{"network_dump", "network.dump"},
	{"interface_status", "network.interface.status"},
	{"device_dump", "network.device.dump"},
	{"firewall_status", "firewall.status"},
	{"firewall_dump", "firewall.dump"},
	{"dhcp_status", "dhcp.status"},
	{"dhcp_leases", "dhcp.leases"},
	{"wireless_dump", "network.wireless.dump"},
	{"system_monitor", "system.monitor"},
	{"system_stats", "system.stats"},
}

// SectionNames lists the pass-through section names in a stable order.
func SectionNames() []string {
	names := make([]string, len(passthrough))
	for i, p := range passthrough {
		names[i] = p.Section
	}

	return names
}

// Empty returns a fully constructed snapshot with every section defaulted.
func Empty() *Snapshot {
	sections := make(map[string]Object, len(passthrough))
	for _, p := range passthrough {
		sections[p.Section] = Object{}
	}

	return &Snapshot{
		AbsentCalls:          []string{},
		Degraded:             []string{},
		SystemBoard:          Object{},
		SystemInfo:           Object{},
		RootFS:               Object{},
		TmpFS:                Object{},
		Swap:                 Object{},
		CPUCount:             defaultCPUCount,
		Interfaces:           map[string]Object{},
		Devices:              Object{},
		Wireless:             map[string]Radio{},
		WirelessConfig:       map[string]Object{},
		WirelessConfigByName: map[string]Object{},
		WirelessByIfname:     map[string]Object{},
		Clients:              map[string]any{},
		IWClientsByDevice:    map[string]int{},
		Temperatures:         map[string]Temperature{},
		Rates:                map[string]Rate{},
		Sections:             sections,
	}
}
