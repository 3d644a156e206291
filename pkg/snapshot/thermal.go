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
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

// ThermalZones is the number of zone indices probed, starting at 0.
const ThermalZones = 32

// ThermalTempCall reads the temperature file of zone idx.
func ThermalTempCall(idx int) ubus.CallSpec {
	return fileRead(fmt.Sprintf("/sys/class/thermal/thermal_zone%d/temp", idx))
}

// ThermalTypeCall reads the type label of zone idx.
func ThermalTypeCall(idx int) ubus.CallSpec {
	return fileRead(fmt.Sprintf("/sys/class/thermal/thermal_zone%d/type", idx))
}

func fileRead(path string) ubus.CallSpec {
	return ubus.CallSpec{
		Namespace: "file",
		Method:    "read",
		Params:    map[string]any{"path": path},
		Optional:  true,
	}
}

// FileData returns the trimmed "data" field of a file.read payload.
func FileData(r ubus.CallResult) (string, bool) {
	if !r.OK {
		return "", false
	}

	res, ok := asObject(r.Value)
	if !ok || len(res) == 0 {
		return "", false
	}

	s, _ := asString(res["data"])

	return strings.TrimSpace(s), true
}

// ParseCelsius converts a thermal reading: integers are millidegrees,
// anything else parseable as a finite float is taken as degrees.
func ParseCelsius(raw string) (float64, bool) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return round2(float64(n) / 1000), true
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

func thermalKey(label string, zone int) string {
	return fmt.Sprintf("%s_%d", strings.NewReplacer(" ", "_", "/", "_").Replace(label), zone)
}

func readTemperatures(reads []ThermalRead) map[string]Temperature {
	out := map[string]Temperature{}

	for _, read := range reads {
		raw, ok := FileData(read.Temp)
		if !ok {
			continue
		}

		celsius, ok := ParseCelsius(raw)
		if !ok {
			continue
		}

		label, _ := FileData(read.Type)
		if label == "" {
			label = fmt.Sprintf("thermal_zone%d", read.Zone)
		}

		out[thermalKey(label, read.Zone)] = Temperature{
			Label:   label,
			Celsius: celsius,
			Raw:     raw,
			Zone:    read.Zone,
		}
	}

	return out
}
