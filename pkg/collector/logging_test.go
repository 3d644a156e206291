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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

type logRecord struct {
	level   slog.Level
	message string
	attrs   map[string]any
}

// recordingHandler keeps every record, including the attributes added
// through Logger.With, for assertions on level and component.
type recordingHandler struct {
	mu      *sync.Mutex
	records *[]logRecord
	attrs   []slog.Attr
}

func newRecordingLogger() (*slog.Logger, func() []logRecord) {
	h := &recordingHandler{mu: &sync.Mutex{}, records: &[]logRecord{}}

	return slog.New(h), func() []logRecord {
		h.mu.Lock()
		defer h.mu.Unlock()

		return append([]logRecord(nil), *h.records...)
	}
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := logRecord{level: r.Level, message: r.Message, attrs: map[string]any{}}

	for _, a := range h.attrs {
		rec.attrs[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()

	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{
		mu:      h.mu,
		records: h.records,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *recordingHandler) WithGroup(string) slog.Handler {
	return h
}

func atOrAbove(records []logRecord, level slog.Level) []logRecord {
	var out []logRecord

	for _, r := range records {
		if r.level >= level {
			out = append(out, r)
		}
	}

	return out
}

func TestCollector_OptionalAbsencesLogAtDebug(t *testing.T) {
	router := wirelessRouter()
	// every required catalogue entry answers; everything else is optional
	router.on("network.device.status", map[string]any{})
	router.on("service.list", map[string]any{})

	for _, s := range DefaultCatalogue() {
		if !s.Optional {
			_, ok := router.handlers[s.Key()]
			require.True(t, ok, "required call %s must be answered", s.Key())
		}
	}

	logger, records := newRecordingLogger()

	raw := New(router, &fixedSession{}, logger).Collect(context.Background())
	require.True(t, raw.SessionOK)

	// hostapd.phy0 and hostapd.radio0 were probed and did not answer
	assert.Equal(t, 1, router.count("hostapd.phy0.get_clients"))
	assert.Equal(t, 1, router.count("hostapd.radio0.get_clients"))

	assert.Empty(t, atOrAbove(records(), slog.LevelInfo))

	var absences int

	for _, r := range records() {
		if r.message == "Optional ubus method unavailable" {
			absences++

			assert.Equal(t, slog.LevelDebug, r.level)
		}
	}

	assert.Positive(t, absences)
}

func TestCollector_LoginFailureWarnsOncePerCycle(t *testing.T) {
	router := newStubRouter()
	logger, records := newRecordingLogger()

	// session.login is not answered on any protocol
	sessions := ubus.NewSessionManager(router, "root", "wrong", logger)
	c := New(router, sessions, logger)

	for cycle := 1; cycle <= 2; cycle++ {
		raw := c.Collect(context.Background())
		require.False(t, raw.SessionOK)

		warnings := atOrAbove(records(), slog.LevelWarn)
		require.Len(t, warnings, cycle)

		last := warnings[len(warnings)-1]
		assert.Equal(t, slog.LevelWarn, last.level)
		assert.Equal(t, "fetcher", last.attrs["component"])
	}

	assert.Equal(t, 2, router.count("session.login"))
	assert.Equal(t, 2, len(router.calls))
}

func TestFetcher_HostapdAbsenceIsQuietEvenWhenRequired(t *testing.T) {
	logger, records := newRecordingLogger()
	f := NewFetcher(newStubRouter(), &fixedSession{}, 0, logger)

	f.logAbsent([]ubus.CallResult{
		ubus.Absent(ubus.CallSpec{Namespace: "hostapd.phy1-ap0", Method: "get_clients"}),
		ubus.Absent(ubus.CallSpec{Namespace: "system", Method: "board"}),
	})

	got := records()
	require.Len(t, got, 2)
	assert.Equal(t, slog.LevelDebug, got[0].level)
	assert.Equal(t, "hostapd.phy1-ap0.get_clients", got[0].attrs["call"])
	assert.Equal(t, slog.LevelInfo, got[1].level)
	assert.Equal(t, "system.board", got[1].attrs["call"])
}
