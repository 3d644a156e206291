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

// computeRates pairs interfaces present in both snapshots. Byte rates are
// filled in from network.device.status statistics when both sides carry
// counters for the interface's device and time has advanced.
func computeRates(cur, prev *Snapshot) map[string]Rate {
	out := map[string]Rate{}

	if prev == nil {
		return out
	}

	elapsed := cur.CollectedAt.Sub(prev.CollectedAt).Seconds()

	for name, iface := range cur.Interfaces {
		prevIface, ok := prev.Interfaces[name]
		if !ok {
			continue
		}

		rate := Rate{Interface: name, ElapsedSeconds: round2(max(elapsed, 0))}

		dev := firstString(iface, "l3_device", "device")
		if dev == "" || dev != firstString(prevIface, "l3_device", "device") {
			out[name] = rate
			continue
		}

		rate.Device = dev

		if elapsed > 0 {
			rate.RxBytesPerSec = counterRate(cur.Devices, prev.Devices, dev, "rx_bytes", elapsed)
			rate.TxBytesPerSec = counterRate(cur.Devices, prev.Devices, dev, "tx_bytes", elapsed)
		}

		out[name] = rate
	}

	return out
}

func counterRate(cur, prev Object, dev, field string, elapsed float64) float64 {
	now, ok := deviceCounter(cur, dev, field)
	if !ok {
		return 0
	}

	before, ok := deviceCounter(prev, dev, field)
	if !ok || now < before {
		return 0
	}

	return round2((now - before) / elapsed)
}

func deviceCounter(devices Object, dev, field string) (float64, bool) {
	d, ok := asObject(devices[dev])
	if !ok {
		return 0, false
	}

	stats, ok := asObject(d["statistics"])
	if !ok {
		return 0, false
	}

	return asFloat(stats[field])
}
