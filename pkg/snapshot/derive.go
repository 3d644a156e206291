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

package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrUnexpectedShape marks a payload that is present but not in any known shape.
	ErrUnexpectedShape = errors.New("unexpected payload shape")
	errPanic           = errors.New("derivation panicked")
)

// derivation tracks which sections fell back to their default in one run.
type derivation struct {
	logger   *slog.Logger
	degraded []string
}

// derive runs fn and reduces its result to fallback on error or panic. The
// failure is logged once at debug and the section recorded as degraded.
func derive[T any](d *derivation, section string, fallback T, fn func() (T, error)) (out T) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(section, fmt.Errorf("%w: %v", errPanic, r))
			out = fallback
		}
	}()

	v, err := fn()
	if err != nil {
		d.fail(section, err)

		return fallback
	}

	return v
}

func (d *derivation) fail(section string, err error) {
	d.logger.Debug("Snapshot section degraded to default", "section", section, "error", err)
	d.degraded = append(d.degraded, section)
}
