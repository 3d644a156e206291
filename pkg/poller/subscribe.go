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

package poller

import (
	"sync"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

// Subscribe returns a channel that receives the published snapshot after
// every completed cycle. A slow reader only ever sees the latest one. The
// returned func unsubscribes and closes the channel; it is safe to call
// more than once.
func (p *Poller) Subscribe() (<-chan *snapshot.Snapshot, func()) {
	ch := make(chan *snapshot.Snapshot, 1)

	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.subMu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subs, id)
			p.subMu.Unlock()

			close(ch)
		})
	}
}

func (p *Poller) notify(snap *snapshot.Snapshot) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- snap:
			continue
		default:
		}

		// drop the unread one
		select {
		case <-ch:
		default:
		}

		select {
		case ch <- snap:
		default:
		}
	}
}
