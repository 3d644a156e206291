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

package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

const namespace = "wrtmon"

// SnapshotCollector exports the current snapshot and the latest cycle as
// Prometheus metrics. Values are computed on scrape.
type SnapshotCollector struct {
	source  SnapshotSource
	history HistoryStore

	up              *prometheus.Desc
	stale           *prometheus.Desc
	absentCalls     *prometheus.Desc
	cycleDuration   *prometheus.Desc
	load            *prometheus.Desc
	memory          *prometheus.Desc
	uptime          *prometheus.Desc
	cpuCount        *prometheus.Desc
	interfaceUp     *prometheus.Desc
	clients         *prometheus.Desc
	iwClients       *prometheus.Desc
	dhcpLeases      *prometheus.Desc
	temperature     *prometheus.Desc
	rxRate          *prometheus.Desc
	txRate          *prometheus.Desc
	degradedSection *prometheus.Desc
}

// NewSnapshotCollector builds a collector reading from source and history.
func NewSnapshotCollector(source SnapshotSource, history HistoryStore) *SnapshotCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}

	return &SnapshotCollector{
		source:          source,
		history:         history,
		up:              desc("session_up", "Whether the last cycle held a ubus session"),
		stale:           desc("snapshot_stale", "Whether the current snapshot is from an earlier, successful cycle"),
		absentCalls:     desc("absent_calls", "Catalogue calls absent in the current snapshot"),
		cycleDuration:   desc("cycle_duration_seconds", "Duration of the last poll cycle"),
		load:            desc("cpu_load_percent", "CPU load average as a percentage", "window"),
		memory:          desc("memory_megabytes", "Memory by kind in megabytes", "kind"),
		uptime:          desc("uptime_seconds", "Router uptime"),
		cpuCount:        desc("cpu_count", "Inferred CPU core count"),
		interfaceUp:     desc("interface_up", "Whether a logical interface is up", "interface"),
		clients:         desc("hostapd_clients", "Stations reported by hostapd", "object"),
		iwClients:       desc("iwinfo_clients", "Stations reported by iwinfo", "device"),
		dhcpLeases:      desc("dhcp_leases", "Active DHCP leases"),
		temperature:     desc("temperature_celsius", "Thermal zone temperature", "zone", "label"),
		rxRate:          desc("interface_rx_bytes_per_second", "Receive rate", "interface"),
		txRate:          desc("interface_tx_bytes_per_second", "Transmit rate", "interface"),
		degradedSection: desc("degraded_sections", "Snapshot sections that fell back to defaults"),
	}
}

// Describe implements prometheus.Collector.
func (c *SnapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.up, c.stale, c.absentCalls, c.cycleDuration, c.load, c.memory, c.uptime,
		c.cpuCount, c.interfaceUp, c.clients, c.iwClients, c.dhcpLeases,
		c.temperature, c.rxRate, c.txRate, c.degradedSection,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *SnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Current()

	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	gauge(c.up, boolFloat(snap.SessionOK))
	gauge(c.stale, boolFloat(snap.Stale))
	gauge(c.absentCalls, float64(len(snap.AbsentCalls)))
	gauge(c.degradedSection, float64(len(snap.Degraded)))

	if last := c.history.GetLastPoint(); last != nil {
		gauge(c.cycleDuration, last.Duration.Seconds())
	}

	for i, window := range []string{"1m", "5m", "15m"} {
		gauge(c.load, snap.Load[i], window)
	}

	gauge(c.memory, snap.Memory.TotalMB, "total")
	gauge(c.memory, snap.Memory.FreeMB, "free")
	gauge(c.memory, snap.Memory.SharedMB, "shared")
	gauge(c.memory, snap.Memory.BufferedMB, "buffered")
	gauge(c.memory, snap.Memory.AvailableMB, "available")
	gauge(c.memory, snap.Memory.CachedMB, "cached")

	gauge(c.uptime, snap.UptimeSeconds)
	gauge(c.cpuCount, float64(snap.CPUCount))
	gauge(c.dhcpLeases, float64(snap.DHCPLeasesCount))

	for name, iface := range snap.Interfaces {
		up, _ := iface["up"].(bool)
		gauge(c.interfaceUp, boolFloat(up), name)
	}

	for obj, stations := range snap.Clients {
		gauge(c.clients, float64(snapshot.StationCount(stations)), obj)
	}

	for dev, n := range snap.IWClientsByDevice {
		gauge(c.iwClients, float64(n), dev)
	}

	for label, t := range snap.Temperatures {
		gauge(c.temperature, t.Celsius, strconv.Itoa(t.Zone), label)
	}

	for name, r := range snap.Rates {
		gauge(c.rxRate, r.RxBytesPerSec, name)
		gauge(c.txRate, r.TxBytesPerSec, name)
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

// Handler registers the collector on a fresh registry, alongside the Go
// runtime collectors, and returns the scrape handler.
func Handler(c *SnapshotCollector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
