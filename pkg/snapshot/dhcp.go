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
	"strings"

	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

// PrimaryLeaseKey is the LuCI lease-list call tried first.
const PrimaryLeaseKey = "luci-rpc.getDHCPLeases"

// SecondaryLeaseCalls are tried in order when the primary gives no answer.
var SecondaryLeaseCalls = []ubus.CallSpec{
	{Namespace: "dhcp", Method: "leases", Optional: true},
	{Namespace: "dhcp", Method: "get_leases", Optional: true},
	{Namespace: "dnsmasq", Method: "leases", Optional: true},
	{Namespace: "odhcpd", Method: "leases", Optional: true},
	{Namespace: "dnsmasq", Method: "get_leases", Optional: true},
}

// LeaseFiles are read through file.exec when no RPC yields a count.
var LeaseFiles = []string{
	"/tmp/dhcp.leases",
	"/var/lib/misc/dnsmasq.leases",
	"/var/lib/dhcp/dhcpd.leases",
}

// LeaseFileCall builds the file.exec call that cats path.
func LeaseFileCall(path string) ubus.CallSpec {
	return ubus.CallSpec{
		Namespace: "file",
		Method:    "exec",
		Params:    map[string]any{"command": "cat", "params": []any{path}},
		Optional:  true,
	}
}

var leaseAddressFields = []string{"ip", "ipaddr", "address", "ipv4", "ipv6", "lease"}

// primaryLeaseList finds the lease list in a luci-rpc payload.
func primaryLeaseList(v any) ([]any, bool) {
	switch res := v.(type) {
	case []any:
		return res, true
	case map[string]any:
		for _, key := range []string{"data", "leases", "dhcp_leases"} {
			if l, ok := res[key].([]any); ok {
				return l, true
			}
		}

		for _, k := range sortedKeys(res) {
			switch c := res[k].(type) {
			case []any:
				return c, true
			case map[string]any:
				return nil, false
			}
		}
	}

	return nil, false
}

// PrimaryLeaseCount counts unique lease addresses in a luci-rpc payload. ok
// is false when the payload holds no recognisable lease list, in which case
// the secondary strategies apply.
func PrimaryLeaseCount(r ubus.CallResult) (int, bool) {
	if !r.OK || !truthy(r.Value) {
		return 0, false
	}

	leases, ok := primaryLeaseList(r.Value)
	if !ok {
		return 0, false
	}

	seen := map[string]struct{}{}

	for _, item := range leases {
		for _, addr := range leaseAddresses(item) {
			if addr != "" {
				seen[addr] = struct{}{}
			}
		}
	}

	return len(seen), true
}

func leaseAddresses(item any) []string {
	switch it := item.(type) {
	case string:
		return []string{it}
	case map[string]any:
		var addrs []string

		for _, k := range leaseAddressFields {
			if s, ok := it[k].(string); ok && s != "" {
				addrs = append(addrs, s)
			}
		}

		if len(addrs) > 0 {
			return addrs
		}

		for _, v := range it {
			if s, ok := v.(string); ok && strings.ContainsAny(s, ".:") {
				addrs = append(addrs, s)
			}
		}

		return addrs
	}

	return nil
}

// SecondaryLeaseCount returns the count of the first secondary result that
// carries a lease list.
func SecondaryLeaseCount(results []ubus.CallResult) (count int, key string, ok bool) {
	for _, r := range results {
		if !r.OK || !truthy(r.Value) {
			continue
		}

		switch res := r.Value.(type) {
		case []any:
			return len(res), r.Spec.Key(), true
		case map[string]any:
			if l, ok := res["leases"].([]any); ok {
				return len(l), r.Spec.Key(), true
			}

			if l, ok := firstList(res); ok {
				return len(l), r.Spec.Key(), true
			}
		}
	}

	return 0, "", false
}

// LeaseFileLines counts non-blank lines in a file.exec payload.
func LeaseFileLines(v any) int {
	content := leaseFileContent(v)
	if content == "" {
		return 0
	}

	n := 0

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}

	return n
}

func leaseFileContent(v any) string {
	switch res := v.(type) {
	case string:
		return res
	case map[string]any:
		for _, key := range []string{"stdout", "output", "data", "return"} {
			if s, ok := res[key].(string); ok {
				return s
			}
		}

		for _, k := range sortedKeys(res) {
			if s, ok := res[k].(string); ok && strings.Contains(s, " ") {
				return s
			}
		}
	}

	return ""
}

type leaseSummary struct {
	count  int
	source string
	raw    any
}

// countLeases walks the fallback chain: primary, secondaries, lease files.
func countLeases(primary ubus.CallResult, secondary []ubus.CallResult, files []LeaseFileRead) leaseSummary {
	if n, ok := PrimaryLeaseCount(primary); ok {
		return leaseSummary{count: n, source: PrimaryLeaseKey, raw: primary.Value}
	}

	if n, key, ok := SecondaryLeaseCount(secondary); ok {
		return leaseSummary{count: n, source: key}
	}

	for _, f := range files {
		if !f.Result.OK {
			continue
		}

		if n := LeaseFileLines(f.Result.Value); n > 0 {
			return leaseSummary{count: n, source: f.Path}
		}
	}

	return leaseSummary{}
}
