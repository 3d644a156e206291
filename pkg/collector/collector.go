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
	"time"

	"github.com/mfreeman451/wrtmon/pkg/snapshot"
	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

// Collector produces one snapshot.Raw per call to Collect.
type Collector struct {
	fetcher   *Fetcher
	prober    *Prober
	catalogue []ubus.CallSpec
	logger    *slog.Logger
	now       func() time.Time
	limit     int
}

type Option func(*Collector)

// WithCatalogue replaces DefaultCatalogue.
func WithCatalogue(specs []ubus.CallSpec) Option {
	return func(c *Collector) {
		c.catalogue = specs
	}
}

// WithConcurrency bounds the calls in flight within a fan-out.
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		c.limit = n
	}
}

// WithClock overrides time.Now for CollectedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// New builds a collector over transport and sessions.
func New(transport ubus.Transport, sessions ubus.Sessions, logger *slog.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Collector{
		catalogue: DefaultCatalogue(),
		logger:    logger,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.fetcher = NewFetcher(transport, sessions, c.limit, logger)
	c.prober = NewProber(c.fetcher, logger)

	return c
}

// Catalogue returns the static calls issued each cycle.
func (c *Collector) Catalogue() []ubus.CallSpec {
	return c.catalogue
}

// Collect runs the catalogue fan-out and the discovery probes. Probes are
// skipped when no session could be established or nothing answered.
func (c *Collector) Collect(ctx context.Context) *snapshot.Raw {
	collectedAt := c.now()

	token, sessionOK, results := c.fetcher.fetch(ctx, c.catalogue)

	var raw *snapshot.Raw
	if sessionOK && countOK(results) > 0 {
		raw = c.prober.Probe(ctx, token, results)
	} else {
		raw = &snapshot.Raw{Results: results}
	}

	raw.CollectedAt = collectedAt
	raw.SessionOK = sessionOK

	return raw
}
