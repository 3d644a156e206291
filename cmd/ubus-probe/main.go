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

// Command ubus-probe logs in to a router once and reports which catalogue
// calls it answers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mfreeman451/wrtmon/pkg/collector"
	"github.com/mfreeman451/wrtmon/pkg/config"
	"github.com/mfreeman451/wrtmon/pkg/logging"
	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

type probeResult struct {
	Call      string `json:"call"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Value     any    `json:"value,omitempty"`
}

func main() {
	host := flag.String("host", os.Getenv("WRTMON_HOST"), "Router host, optionally host:port")
	username := flag.String("username", "root", "ubus username")
	password := flag.String("password", os.Getenv("WRTMON_PASSWORD"), "ubus password")
	timeout := flag.Duration("timeout", ubus.DefaultTimeout, "Per-call timeout")
	dump := flag.String("dump", "", "Write every answered payload as JSON to this file")
	verbose := flag.Bool("v", false, "Log transport attempts")
	flag.Parse()

	if *host == "" {
		log.Fatal("-host is required")
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}

	logger := logging.NewWithWriter(config.LoggingConfig{Level: level}, os.Stderr)

	client, err := ubus.NewClient(ubus.Endpoint{Host: *host, Username: *username, Password: *password},
		ubus.WithLogger(logger), ubus.WithTimeout(*timeout))
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := client.TestConnection(ctx); err != nil {
		log.Fatalf("Connection test failed: %v", err)
	}

	results := probe(ctx, client, collector.DefaultCatalogue())

	if err := writeTable(os.Stdout, results); err != nil {
		log.Fatalf("Failed to write table: %v", err)
	}

	if *dump != "" {
		if err := writeDump(*dump, results); err != nil {
			log.Fatalf("Failed to write dump: %v", err)
		}
	}
}

func probe(ctx context.Context, caller ubus.Caller, specs []ubus.CallSpec) []probeResult {
	results := make([]probeResult, 0, len(specs))

	for _, s := range specs {
		value, ok := caller.Call(ctx, s.Namespace, s.Method, s.Params)

		results = append(results, probeResult{
			Call:      s.Key(),
			Optional:  s.Optional,
			Available: ok,
			Value:     value,
		})
	}

	return results
}

func writeTable(w io.Writer, results []probeResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "CALL\tOPTIONAL\tAVAILABLE")

	answered := 0

	for _, r := range results {
		if r.Available {
			answered++
		}

		fmt.Fprintf(tw, "%s\t%t\t%t\n", r.Call, r.Optional, r.Available)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d of %d calls answered\n", answered, len(results))

	return err
}

func writeDump(path string, results []probeResult) error {
	answered := make(map[string]any, len(results))

	for _, r := range results {
		if r.Available {
			answered[r.Call] = r.Value
		}
	}

	data, err := json.MarshalIndent(answered, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
