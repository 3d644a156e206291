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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/mfreeman451/wrtmon/pkg/alerts"
	"github.com/mfreeman451/wrtmon/pkg/api"
	"github.com/mfreeman451/wrtmon/pkg/collector"
	"github.com/mfreeman451/wrtmon/pkg/config"
	"github.com/mfreeman451/wrtmon/pkg/control"
	"github.com/mfreeman451/wrtmon/pkg/grpc"
	"github.com/mfreeman451/wrtmon/pkg/lifecycle"
	"github.com/mfreeman451/wrtmon/pkg/logging"
	"github.com/mfreeman451/wrtmon/pkg/metrics"
	"github.com/mfreeman451/wrtmon/pkg/poller"
	"github.com/mfreeman451/wrtmon/pkg/snapshot"
	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

const healthcheckTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "/etc/wrtmon/wrtmon.yaml", "Path to config file")
	issueToken := flag.String("issue-token", "", "Print a control token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of an issued token")
	healthcheck := flag.Bool("healthcheck", false, "Query the gRPC health endpoint and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch {
	case *issueToken != "":
		err = printToken(cfg, *issueToken, *tokenTTL)
	case *healthcheck:
		err = checkHealth(cfg)
	default:
		err = run(cfg)
	}

	if err != nil {
		log.Fatalf("wrtmon: %v", err)
	}
}

func run(cfg *config.Config) error {
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	client, err := ubus.NewClient(ubus.Endpoint{
		Host:     cfg.Router.Host,
		Username: cfg.Router.Username,
		Password: cfg.Router.Password,
	}, ubus.WithLogger(logger), ubus.WithTimeout(time.Duration(cfg.Router.Timeout)))
	if err != nil {
		return err
	}
	defer client.Close()

	coll := collector.New(client.Transport(), client.Sessions(), logger,
		collector.WithConcurrency(cfg.Poll.Concurrency))

	history := metrics.NewBuffer(cfg.Poll.HistorySize)

	p, err := poller.New(poller.FromPollConfig(cfg.Poll), coll, snapshot.NewNormalizer(logger),
		poller.WithHistory(history), poller.WithLogger(logger))
	if err != nil {
		return err
	}

	apiOpts := []api.Option{
		api.WithLogger(logger),
		api.WithCORSOrigins(cfg.API.CORSOrigins),
		api.WithMetricsHandler(metrics.Handler(metrics.NewSnapshotCollector(p, history))),
	}

	if cfg.API.JWTSecret != "" {
		authority, err := api.NewTokenAuthority(cfg.API.JWTSecret)
		if err != nil {
			return err
		}

		apiOpts = append(apiOpts, api.WithTokenAuthority(authority))
	} else {
		logger.Warn("No JWT secret configured, control endpoints are disabled")
	}

	ctrl := control.New(client, p, logger)

	var background []func(context.Context)

	alerters, err := newAlerters(cfg.Alerts, logger)
	if err != nil {
		return err
	}

	if len(alerters) > 0 {
		watcher := alerts.NewWatcher(cfg.Router.Host, alerters, logger)

		background = append(background, func(ctx context.Context) {
			watcher.Run(ctx, p)
		})
	}

	return lifecycle.RunServer(context.Background(), &lifecycle.ServerOptions{
		ServiceName:  "wrtmon",
		Service:      p,
		HTTPAddr:     cfg.API.ListenAddr,
		HTTP:         api.NewAPIServer(p, ctrl, apiOpts...),
		GRPCAddr:     cfg.GRPC.ListenAddr,
		Security:     &cfg.GRPC.Security,
		HealthSource: p,
		Background:   background,
		Logger:       logger,
	})
}

func newAlerters(cfg config.AlertsConfig, logger *slog.Logger) ([]alerts.AlertService, error) {
	var out []alerts.AlertService

	for _, hook := range cfg.Webhooks {
		if !hook.Enabled {
			continue
		}

		alerter, err := alerts.NewWebhookAlerter(hook, logger)
		if err != nil {
			return nil, err
		}

		out = append(out, alerter)
	}

	return out, nil
}

func printToken(cfg *config.Config, subject string, ttl time.Duration) error {
	authority, err := api.NewTokenAuthority(cfg.API.JWTSecret)
	if err != nil {
		return err
	}

	token, expires, err := authority.Issue(subject, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "token for %s expires %s\n", subject, expires.Format(time.RFC3339))
	fmt.Println(token)

	return nil
}

// checkHealth exits non-zero unless the running instance reports SERVING.
func checkHealth(cfg *config.Config) error {
	if cfg.GRPC.ListenAddr == "" {
		return fmt.Errorf("grpc listen_addr is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthcheckTimeout)
	defer cancel()

	logger := logging.New(cfg.Logging)

	provider, err := grpc.NewSecurityProvider(&cfg.GRPC.Security, grpc.RoleClient, logger)
	if err != nil {
		return err
	}

	client, err := grpc.NewClient(ctx, dialAddr(cfg.GRPC.ListenAddr),
		grpc.WithSecurityProvider(provider), grpc.WithClientLogger(logger), grpc.WithMaxRetries(1))
	if err != nil {
		return err
	}
	defer client.Close()

	serving, err := client.CheckHealth(ctx, grpc.ServiceName)
	if err != nil {
		return err
	}

	if !serving {
		return fmt.Errorf("%s is not serving", grpc.ServiceName)
	}

	fmt.Println("SERVING")

	return nil
}

// dialAddr turns a wildcard listen address into a loopback one.
func dialAddr(listen string) string {
	if len(listen) > 0 && listen[0] == ':' {
		return "localhost" + listen
	}

	return listen
}
