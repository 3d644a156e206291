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
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type handler func(params map[string]any) (any, bool)

// stubRouter answers ubus calls from a handler table and records every call.
type stubRouter struct {
	mu       sync.Mutex
	handlers map[string]handler
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func newStubRouter() *stubRouter {
	return &stubRouter{handlers: map[string]handler{}}
}

func (s *stubRouter) on(key string, value any) {
	s.handlers[key] = func(map[string]any) (any, bool) { return value, true }
}

func (s *stubRouter) Call(_ context.Context, _, namespace, method string, params map[string]any) (any, bool) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	key := namespace + "." + method

	s.mu.Lock()
	s.calls = append(s.calls, key)
	h, ok := s.handlers[key]
	s.mu.Unlock()

	if !ok {
		return nil, false
	}

	return h(params)
}

func (s *stubRouter) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, c := range s.calls {
		if c == key {
			n++
		}
	}

	return n
}

type fixedSession struct {
	invalidated atomic.Int32
}

func (f *fixedSession) EnsureSession(context.Context) (string, bool) { return "token", true }
func (f *fixedSession) Invalidate()                                  { f.invalidated.Add(1) }

func TestDefaultCatalogue(t *testing.T) {
	cat := DefaultCatalogue()

	require.Len(t, cat, 34)
	assert.Equal(t, "system.board", cat[0].Key())
	assert.Equal(t, "luci-rpc.getDHCPLeases", cat[len(cat)-1].Key())

	for _, s := range cat {
		assert.NotEqual(t, "reload", s.Method, s.Key())
	}

	assert.False(t, quiet(cat[0]))
	assert.True(t, quiet(ubus.CallSpec{Namespace: "hostapd.phy0-ap0", Method: "get_clients"}))
	assert.False(t, quiet(ubus.CallSpec{Namespace: "hostapd.phy0-ap0", Method: "del_client"}))
}

func TestFetcher_FetchAllPreservesOrder(t *testing.T) {
	router := newStubRouter()
	router.delay = time.Millisecond

	specs := make([]ubus.CallSpec, 40)
	for i := range specs {
		specs[i] = ubus.CallSpec{Namespace: "ns", Method: fmt.Sprintf("m%02d", i)}
		if i%3 != 0 {
			router.on(specs[i].Key(), float64(i))
		}
	}

	f := NewFetcher(router, &fixedSession{}, 0, quietLogger())
	results := f.FetchAll(context.Background(), specs)

	require.Len(t, results, len(specs))

	for i, r := range results {
		assert.Equal(t, specs[i], r.Spec)

		if i%3 == 0 {
			assert.False(t, r.OK)
			assert.Nil(t, r.Value)
		} else {
			assert.True(t, r.OK)
			assert.Equal(t, float64(i), r.Value)
		}
	}
}

func TestFetcher_ConcurrencyLimit(t *testing.T) {
	router := newStubRouter()
	router.delay = 2 * time.Millisecond

	specs := make([]ubus.CallSpec, 20)
	for i := range specs {
		specs[i] = ubus.CallSpec{Namespace: "ns", Method: fmt.Sprintf("m%d", i)}
		router.on(specs[i].Key(), true)
	}

	f := NewFetcher(router, &fixedSession{}, 4, quietLogger())
	_ = f.FetchAll(context.Background(), specs)

	assert.LessOrEqual(t, router.peak.Load(), int32(4))
	assert.Equal(t, 20, len(router.calls))
}

func TestFetcher_WithMocks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	specs := []ubus.CallSpec{
		{Namespace: "system", Method: "board"},
		{Namespace: "system", Method: "info"},
	}

	tests := []struct {
		name      string
		setupMock func(*ubus.MockTransport, *ubus.MockSessions)
		wantOK    []bool
	}{
		{
			name: "no session",
			setupMock: func(_ *ubus.MockTransport, ms *ubus.MockSessions) {
				ms.EXPECT().EnsureSession(gomock.Any()).Return("", false)
			},
			wantOK: []bool{false, false},
		},
		{
			name: "everything absent drops the session",
			setupMock: func(mt *ubus.MockTransport, ms *ubus.MockSessions) {
				ms.EXPECT().EnsureSession(gomock.Any()).Return("stale", true)
				mt.EXPECT().Call(gomock.Any(), "stale", gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, false).Times(2)
				ms.EXPECT().Invalidate()
			},
			wantOK: []bool{false, false},
		},
		{
			name: "partial failure keeps the session",
			setupMock: func(mt *ubus.MockTransport, ms *ubus.MockSessions) {
				ms.EXPECT().EnsureSession(gomock.Any()).Return("good", true)
				mt.EXPECT().Call(gomock.Any(), "good", "system", "board", gomock.Any()).
					Return(map[string]any{"model": "x"}, true)
				mt.EXPECT().Call(gomock.Any(), "good", "system", "info", gomock.Any()).
					Return(nil, false)
			},
			wantOK: []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := ubus.NewMockTransport(ctrl)
			ms := ubus.NewMockSessions(ctrl)
			tt.setupMock(mt, ms)

			f := NewFetcher(mt, ms, 0, quietLogger())
			results := f.FetchAll(context.Background(), specs)

			require.Len(t, results, len(specs))

			for i, r := range results {
				assert.Equal(t, tt.wantOK[i], r.OK, specs[i].Key())
			}
		})
	}
}

func wirelessRouter() *stubRouter {
	router := newStubRouter()

	router.on("system.board", map[string]any{"hostname": "OpenWrt", "system": "ARMv8 Processor rev 4"})
	router.on("system.info", map[string]any{
		"uptime": float64(120),
		"load":   []any{float64(50000), float64(250000), float64(0)},
		"memory": map[string]any{"total": float64(1048576)},
	})
	router.on("network.interface.dump", map[string]any{"interface": []any{
		map[string]any{"interface": "lan", "l3_device": "br-lan"},
	}})
	router.on("network.wireless.status", map[string]any{
		"radio0": map[string]any{"up": true, "interfaces": []any{
			map[string]any{"ifname": "phy0-ap0", "section": "default_radio0"},
		}},
	})
	router.on("uci.get_all", map[string]any{"values": map[string]any{
		"radio0":         map[string]any{".type": "wifi-device"},
		"default_radio0": map[string]any{".type": "wifi-iface", "device": "radio0", "ssid": "home"},
	}})
	router.on("hostapd.phy0-ap0.get_clients", map[string]any{"clients": map[string]any{
		"aa:aa:aa:aa:aa:01": map[string]any{}, "aa:aa:aa:aa:aa:02": map[string]any{},
	}})
	router.handlers["iwinfo.assoclist"] = func(params map[string]any) (any, bool) {
		if params["device"] == "phy0-ap0" {
			return map[string]any{"results": []any{map[string]any{"mac": "aa"}}}, true
		}

		return nil, false
	}
	router.handlers["file.read"] = func(params map[string]any) (any, bool) {
		switch params["path"] {
		case "/sys/class/thermal/thermal_zone0/temp":
			return map[string]any{"data": "45000\n"}, true
		case "/sys/class/thermal/thermal_zone0/type":
			return map[string]any{"data": "cpu-thermal\n"}, true
		}

		return nil, false
	}

	return router
}

func TestCollector_CollectDiscovery(t *testing.T) {
	router := wirelessRouter()
	router.on("dnsmasq.leases", map[string]any{"leases": []any{1, 2, 3}})

	at := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	c := New(router, &fixedSession{}, quietLogger(), WithClock(func() time.Time { return at }))

	raw := c.Collect(context.Background())

	require.True(t, raw.SessionOK)
	assert.Equal(t, at, raw.CollectedAt)
	require.Len(t, raw.Results, len(DefaultCatalogue()))
	require.Len(t, raw.Thermal, snapshot.ThermalZones)
	require.Len(t, raw.DHCPSecondary, len(snapshot.SecondaryLeaseCalls))
	assert.Empty(t, raw.LeaseFiles)

	assert.Equal(t, 1, router.count("hostapd.phy0-ap0.get_clients"))
	assert.Equal(t, 1, router.count("hostapd.phy0.get_clients"))
	assert.Equal(t, 1, router.count("hostapd.radio0.get_clients"))
	assert.Equal(t, 1, router.count("dhcp.leases"), "dhcp.leases is reused from the catalogue")
	assert.Equal(t, 0, router.count("file.exec"))
	assert.Equal(t, snapshot.ThermalZones+1, router.count("file.read"))

	snap := snapshot.Normalize(raw, nil)

	assert.Equal(t, [3]float64{50, 100, 0}, snap.Load)
	assert.InDelta(t, 1.0, snap.Memory.TotalMB, 1e-9)
	assert.Equal(t, 4, snap.CPUCount)
	assert.Contains(t, snap.Interfaces, "lan")
	assert.Equal(t, 2, snap.ClientsCount)
	assert.Equal(t, map[string]int{"phy0-ap0": 1}, snap.IWClientsByDevice)
	assert.Equal(t, 3, snap.DHCPLeasesCount)
	assert.Equal(t, "dnsmasq.leases", snap.DHCPLeasesSource)
	require.Len(t, snap.Temperatures, 1)
	assert.InDelta(t, 45.0, snap.Temperatures["cpu-thermal_0"].Celsius, 1e-9)
	assert.Equal(t, "radio0", snap.WirelessByIfname["phy0-ap0"]["radio"])
}

func TestCollector_PrimaryLeasesSkipFallbacks(t *testing.T) {
	router := wirelessRouter()
	router.on("luci-rpc.getDHCPLeases", map[string]any{"dhcp_leases": []any{}})

	c := New(router, &fixedSession{}, quietLogger())
	raw := c.Collect(context.Background())

	assert.Empty(t, raw.DHCPSecondary)
	assert.Empty(t, raw.LeaseFiles)
	assert.Equal(t, 0, router.count("dnsmasq.leases"))
	assert.Equal(t, 0, router.count("file.exec"))

	snap := snapshot.Normalize(raw, nil)
	assert.Equal(t, 0, snap.DHCPLeasesCount)
	assert.Equal(t, snapshot.PrimaryLeaseKey, snap.DHCPLeasesSource)
}

func TestCollector_LeaseFileFallbackStopsAtFirstHit(t *testing.T) {
	router := wirelessRouter()
	router.handlers["file.exec"] = func(params map[string]any) (any, bool) {
		args, _ := params["params"].([]any)
		if len(args) == 1 && args[0] == "/var/lib/misc/dnsmasq.leases" {
			return map[string]any{"code": float64(0), "stdout": "1 a 10.0.0.2 x *\n2 b 10.0.0.3 y *\n"}, true
		}

		return nil, false
	}

	c := New(router, &fixedSession{}, quietLogger())
	raw := c.Collect(context.Background())

	require.Len(t, raw.LeaseFiles, 2)
	assert.Equal(t, 2, router.count("file.exec"))

	snap := snapshot.Normalize(raw, nil)
	assert.Equal(t, 2, snap.DHCPLeasesCount)
	assert.Equal(t, "/var/lib/misc/dnsmasq.leases", snap.DHCPLeasesSource)
}

func TestCollector_NoSessionSkipsProbes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mt := ubus.NewMockTransport(ctrl)
	ms := ubus.NewMockSessions(ctrl)
	ms.EXPECT().EnsureSession(gomock.Any()).Return("", false)

	c := New(mt, ms, quietLogger())
	raw := c.Collect(context.Background())

	assert.False(t, raw.SessionOK)
	require.Len(t, raw.Results, len(DefaultCatalogue()))
	assert.Nil(t, raw.Thermal)
	assert.Nil(t, raw.Hostapd)

	snap := snapshot.Normalize(raw, nil)
	assert.Len(t, snap.AbsentCalls, len(DefaultCatalogue()))
	assert.False(t, snap.SessionOK)
}

func TestCollector_OnlyBoardAndInterfaceDump(t *testing.T) {
	router := newStubRouter()
	router.on("system.board", map[string]any{"hostname": "OpenWrt"})
	router.on("network.interface.dump", map[string]any{"interface": []any{map[string]any{"interface": "wan"}}})

	session := &fixedSession{}
	c := New(router, session, quietLogger())

	snap := snapshot.Normalize(c.Collect(context.Background()), nil)

	assert.Equal(t, "OpenWrt", snap.SystemBoard["hostname"])
	assert.Contains(t, snap.Interfaces, "wan")
	assert.Len(t, snap.AbsentCalls, len(DefaultCatalogue())-2)
	assert.Empty(t, snap.Wireless)
	assert.Empty(t, snap.Temperatures)
	assert.Zero(t, snap.DHCPLeasesCount)
	assert.Zero(t, snap.ClientsCount)
	assert.Empty(t, snap.Degraded)
	assert.Zero(t, session.invalidated.Load())
}
