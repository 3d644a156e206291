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

// Package control issues state-changing ubus calls against the router.
// Each action walks a chain of equivalent methods until one answers, then
// asks for an out-of-cycle poll.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

var (
	ErrInvalidInterface = errors.New("invalid interface name")
	ErrActionFailed     = errors.New("no method in the chain answered")
)

const defaultRestartPause = time.Second

var ifaceName = regexp.MustCompile(`^[A-Za-z0-9_.@-]{1,64}$`)

// Refresher schedules a poll cycle after a control action. The request must
// not be dropped by rate limiting.
type Refresher interface {
	RequestRefresh() error
}

// step is one call in a fallback chain.
type step struct {
	namespace string
	method    string
	params    map[string]any
}

func (s step) String() string {
	return s.namespace + "." + s.method
}

// Result reports which call of the chain took effect.
type Result struct {
	Action    string `json:"action"`
	Interface string `json:"interface,omitempty"`
	Via       string `json:"via"`
}

// Controller runs control actions over a session-aware caller.
type Controller struct {
	caller    ubus.Caller
	refresher Refresher
	logger    *slog.Logger
	pause     time.Duration
}

type Option func(*Controller)

// WithRestartPause sets the wait between down and up on restart.
func WithRestartPause(d time.Duration) Option {
	return func(c *Controller) {
		c.pause = d
	}
}

// New builds a Controller. refresher may be nil.
func New(caller ubus.Caller, refresher Refresher, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		caller:    caller,
		refresher: refresher,
		logger:    logger.With("component", "control"),
		pause:     defaultRestartPause,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func ifaceChain(direction, iface string) []step {
	args := map[string]any{"interface": iface}

	return []step{
		{"network.interface", direction, args},
		{"network", "if" + direction, args},
		{"file", "exec", map[string]any{"command": "/sbin/wifi", "params": []any{direction, iface}}},
	}
}

func rebootChain() []step {
	return []step{
		{"system", "reboot", map[string]any{}},
		{"file", "exec", map[string]any{"command": "/sbin/reboot", "params": []any{}}},
		{"file", "exec", map[string]any{"command": "reboot", "params": []any{}}},
	}
}

var reload = step{"network", "reload", map[string]any{}}

// InterfaceUp brings a logical interface up, falling back to a network
// reload when nothing else answers.
func (c *Controller) InterfaceUp(ctx context.Context, iface string) (Result, error) {
	return c.toggle(ctx, "up", iface)
}

// InterfaceDown takes a logical interface down.
func (c *Controller) InterfaceDown(ctx context.Context, iface string) (Result, error) {
	return c.toggle(ctx, "down", iface)
}

func (c *Controller) toggle(ctx context.Context, direction, iface string) (Result, error) {
	if !ifaceName.MatchString(iface) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidInterface, iface)
	}

	defer c.refresh()

	res := Result{Action: "interface_" + direction, Interface: iface}

	via, err := c.run(ctx, append(ifaceChain(direction, iface), reload))
	res.Via = via

	return res, err
}

// RestartInterface takes iface down, waits, and brings it up again. The up
// half runs even when the down half failed.
func (c *Controller) RestartInterface(ctx context.Context, iface string) (Result, error) {
	if !ifaceName.MatchString(iface) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidInterface, iface)
	}

	defer c.refresh()

	res := Result{Action: "interface_restart", Interface: iface}

	if _, err := c.run(ctx, ifaceChain("down", iface)); err != nil {
		c.logger.Debug("Restart: down half failed", "interface", iface, "error", err)
	}

	timer := time.NewTimer(c.pause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return res, ctx.Err()
	case <-timer.C:
	}

	via, err := c.run(ctx, ifaceChain("up", iface))
	res.Via = via

	return res, err
}

// Reboot restarts the router.
func (c *Controller) Reboot(ctx context.Context) (Result, error) {
	defer c.refresh()

	via, err := c.run(ctx, rebootChain())

	return Result{Action: "reboot", Via: via}, err
}

// run tries each step in order and returns the first that answered.
func (c *Controller) run(ctx context.Context, chain []step) (string, error) {
	for _, s := range chain {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if _, ok := c.caller.Call(ctx, s.namespace, s.method, s.params); ok {
			c.logger.Info("Control call succeeded", "call", s.String(), "params", s.params)

			return s.String(), nil
		}

		c.logger.Debug("Control call absent, trying next", "call", s.String())
	}

	c.logger.Error("All control methods failed", "first", chain[0].String())

	return "", fmt.Errorf("%w: %s", ErrActionFailed, chain[0])
}

func (c *Controller) refresh() {
	if c.refresher == nil {
		return
	}

	if err := c.refresher.RequestRefresh(); err != nil {
		c.logger.Warn("Refresh after control action not scheduled", "error", err)
	}
}
