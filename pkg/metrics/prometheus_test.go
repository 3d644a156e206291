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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

func testSnapshot() *snapshot.Snapshot {
	snap := snapshot.Empty()
	snap.SessionOK = true
	snap.Load = [3]float64{12.5, 8, 4.25}
	snap.Memory = snapshot.Memory{TotalMB: 128, FreeMB: 64}
	snap.Interfaces = map[string]snapshot.Object{
		"lan": {"up": true},
		"wan": {"up": false},
	}
	snap.Clients = map[string]any{"wlan0": []any{"a", "b"}}
	snap.Temperatures = map[string]snapshot.Temperature{
		"cpu-thermal": {Label: "cpu-thermal", Celsius: 48.5, Zone: 0},
	}

	return snap
}

func TestSnapshotCollector(t *testing.T) {
	ctrl := gomock.NewController(t)

	source := NewMockSnapshotSource(ctrl)
	source.EXPECT().Current().Return(testSnapshot()).AnyTimes()

	history := NewMockHistoryStore(ctrl)
	history.EXPECT().GetLastPoint().Return(&CyclePoint{Duration: 1500 * time.Millisecond}).AnyTimes()

	c := NewSnapshotCollector(source, history)

	expected := `
# HELP wrtmon_session_up Whether the last cycle held a ubus session
# TYPE wrtmon_session_up gauge
wrtmon_session_up 1
# HELP wrtmon_cycle_duration_seconds Duration of the last poll cycle
# TYPE wrtmon_cycle_duration_seconds gauge
wrtmon_cycle_duration_seconds 1.5
# HELP wrtmon_interface_up Whether a logical interface is up
# TYPE wrtmon_interface_up gauge
wrtmon_interface_up{interface="lan"} 1
wrtmon_interface_up{interface="wan"} 0
# HELP wrtmon_hostapd_clients Stations reported by hostapd
# TYPE wrtmon_hostapd_clients gauge
wrtmon_hostapd_clients{object="wlan0"} 2
# HELP wrtmon_temperature_celsius Thermal zone temperature
# TYPE wrtmon_temperature_celsius gauge
wrtmon_temperature_celsius{label="cpu-thermal",zone="0"} 48.5
`

	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"wrtmon_session_up", "wrtmon_cycle_duration_seconds", "wrtmon_interface_up",
		"wrtmon_hostapd_clients", "wrtmon_temperature_celsius")
	require.NoError(t, err)
}

func TestSnapshotCollector_NoHistory(t *testing.T) {
	ctrl := gomock.NewController(t)

	source := NewMockSnapshotSource(ctrl)
	source.EXPECT().Current().Return(snapshot.Empty()).AnyTimes()

	history := NewMockHistoryStore(ctrl)
	history.EXPECT().GetLastPoint().Return(nil).AnyTimes()

	c := NewSnapshotCollector(source, history)

	assert.Equal(t, 0, testutil.CollectAndCount(c, "wrtmon_cycle_duration_seconds"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "wrtmon_session_up"))
}

func TestHandler(t *testing.T) {
	ctrl := gomock.NewController(t)

	source := NewMockSnapshotSource(ctrl)
	source.EXPECT().Current().Return(testSnapshot()).AnyTimes()

	srv := httptest.NewServer(Handler(NewSnapshotCollector(source, NewBuffer(4))))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `wrtmon_cpu_load_percent{window="1m"} 12.5`)
	assert.Contains(t, string(body), "go_goroutines")
}
