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
	"encoding/json"
	"math"
	"sort"
	"strings"
)

const (
	bytesPerMB      = 1024 * 1024
	loadScale       = 100000
	defaultCPUCount = 1
)

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BytesToMB converts a byte count to megabytes, rounded to two decimals.
func BytesToMB(b float64) float64 {
	return round2(b / bytesPerMB)
}

// LoadPercent converts one raw load sample to a percentage capped at 100.
func LoadPercent(v float64) float64 {
	return round2(math.Min(v/loadScale*100, 100))
}

// archCores maps architecture substrings found in system.board "system"
// to an assumed core count. Checked in order.
var archCores = []struct {
	needles []string
	cores   int
}{
	{[]string{"ARMv7"}, 2},
	{[]string{"ARMv8", "aarch64"}, 4},
	{[]string{"x86_64"}, 4},
	{[]string{"mips"}, 2},
}

// CPUCount infers the core count from a system.board payload.
func CPUCount(board Object) int {
	if cpu, ok := board["cpu"]; ok {
		switch c := cpu.(type) {
		case []any:
			return len(c)
		case map[string]any:
			if n, ok := asFloat(c["count"]); ok {
				return int(n)
			}
		}
	}

	if system, ok := board["system"].(string); ok {
		for _, arch := range archCores {
			for _, needle := range arch.needles {
				if strings.Contains(system, needle) {
					return arch.cores
				}
			}
		}
	}

	return defaultCPUCount
}

func asObject(v any) (Object, bool) {
	o, ok := v.(map[string]any)
	return o, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}

	return 0, false
}

// truthy mirrors JSON "emptiness": nil, false, 0, "" and empty containers
// are all empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}

	if f, ok := asFloat(v); ok {
		return f != 0
	}

	return true
}

// firstString returns the first non-empty string among keys.
func firstString(o Object, keys ...string) string {
	for _, k := range keys {
		if s, ok := o[k].(string); ok && s != "" {
			return s
		}
	}

	return ""
}

// firstList returns the first list value of o, visiting keys in sorted order.
func firstList(o Object) ([]any, bool) {
	for _, k := range sortedKeys(o) {
		if l, ok := o[k].([]any); ok {
			return l, true
		}
	}

	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func copyObject(o Object) Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}

	return out
}
