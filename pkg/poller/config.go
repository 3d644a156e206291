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
	"fmt"
	"time"

	"github.com/mfreeman451/wrtmon/pkg/config"
)

// Config controls the poll loop.
type Config struct {
	Interval      time.Duration
	FailurePolicy string
	// RefreshEvery is the minimum spacing between out-of-cycle refreshes.
	RefreshEvery time.Duration
}

// FromPollConfig converts the file configuration.
func FromPollConfig(c config.PollConfig) Config {
	return Config{
		Interval:      time.Duration(c.Interval),
		FailurePolicy: c.FailurePolicy,
		RefreshEvery:  time.Duration(c.RefreshEvery),
	}
}

// Validate implements config.Validator. Zero values take the defaults.
func (c *Config) Validate() error {
	if c.Interval == 0 {
		c.Interval = time.Duration(config.DefaultPollInterval)
	}

	if c.Interval < time.Duration(config.MinPollInterval) || c.Interval > time.Duration(config.MaxPollInterval) {
		return fmt.Errorf("%w: interval %s", ErrInvalidConfig, c.Interval)
	}

	switch c.FailurePolicy {
	case "":
		c.FailurePolicy = config.FailurePolicyRetain
	case config.FailurePolicyRetain, config.FailurePolicyEmpty:
	default:
		return fmt.Errorf("%w: failure policy %q", ErrInvalidConfig, c.FailurePolicy)
	}

	if c.RefreshEvery <= 0 {
		c.RefreshEvery = time.Duration(config.DefaultRefreshEvery)
	}

	return nil
}
