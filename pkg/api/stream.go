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

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamEvent is sent to stream clients after every completed cycle.
// Snapshot is only filled when the client asked for ?full=1.
type StreamEvent struct {
	Type        string             `json:"type"`
	CycleID     string             `json:"cycle_id,omitempty"`
	CollectedAt time.Time          `json:"collected_at"`
	Stale       bool               `json:"stale"`
	SessionOK   bool               `json:"session_ok"`
	AbsentCalls int                `json:"absent_calls"`
	Snapshot    *snapshot.Snapshot `json:"snapshot,omitempty"`
}

func newStreamEvent(snap *snapshot.Snapshot, full bool) StreamEvent {
	ev := StreamEvent{
		Type:        "cycle",
		CycleID:     snap.CycleID,
		CollectedAt: snap.CollectedAt,
		Stale:       snap.Stale,
		SessionOK:   snap.SessionOK,
		AbsentCalls: len(snap.AbsentCalls),
	}

	if full {
		ev.Snapshot = snap
	}

	return ev
}

func (s *APIServer) upgrader() websocket.Upgrader {
	allowed := httpOrigins(s.origins)

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			return allowed == nil || origin == "" || allowed[origin]
		},
	}
}

// httpOrigins returns nil when any origin is allowed.
func httpOrigins(origins []string) map[string]bool {
	if len(origins) == 0 {
		return nil
	}

	set := make(map[string]bool, len(origins))

	for _, o := range origins {
		if o == "*" {
			return nil
		}

		set[o] = true
	}

	return set
}

// stream pushes a StreamEvent per completed cycle until the client goes
// away. The current snapshot is sent first.
func (s *APIServer) stream(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	full := r.URL.Query().Get("full") == "1"

	updates, unsubscribe := s.provider.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})

	go s.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := s.send(conn, newStreamEvent(currentOrEmpty(s.provider), full)); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))

				return
			}

			if err := s.send(conn, newStreamEvent(snap, full)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *APIServer) send(conn *websocket.Conn, ev StreamEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := conn.WriteJSON(ev); err != nil {
		s.logger.Debug("Stream write failed", "error", err)

		return err
	}

	return nil
}

// readPump drains client frames so close and pong frames are processed.
func (s *APIServer) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Stream client closed unexpectedly", "error", err)
			}

			return
		}
	}
}
