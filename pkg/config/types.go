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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	return d.set(v)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}

	return d.set(v)
}

func (d *Duration) set(v interface{}) error {
	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case int:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

const (
	DefaultPollInterval   = Duration(30 * time.Second)
	MinPollInterval       = Duration(10 * time.Second)
	MaxPollInterval       = Duration(300 * time.Second)
	DefaultCallTimeout    = Duration(10 * time.Second)
	DefaultRefreshEvery   = Duration(2 * time.Second)
	DefaultHistorySize    = 120
	DefaultHTTPListenAddr = ":8080"

	FailurePolicyRetain = "retain"
	FailurePolicyEmpty  = "empty"
)

// Config is the wrtmon service configuration.
type Config struct {
	Router  RouterConfig  `json:"router" yaml:"router"`
	Poll    PollConfig    `json:"poll" yaml:"poll"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	API     APIConfig     `json:"api" yaml:"api"`
	GRPC    GRPCConfig    `json:"grpc" yaml:"grpc"`
	Alerts  AlertsConfig  `json:"alerts" yaml:"alerts"`
}

// RouterConfig identifies the polled router.
type RouterConfig struct {
	Host     string   `json:"host" yaml:"host" validate:"required,hostname_port|hostname_rfc1123|ip"`
	Username string   `json:"username" yaml:"username" validate:"required"`
	Password string   `json:"password" yaml:"password"`
	Timeout  Duration `json:"timeout" yaml:"timeout"`
}

// PollConfig controls the poll loop.
type PollConfig struct {
	Interval      Duration `json:"interval" yaml:"interval"`
	FailurePolicy string   `json:"failure_policy" yaml:"failure_policy" validate:"oneof=retain empty"`
	// Concurrency bounds calls in flight per fan-out; zero is unbounded.
	Concurrency  int      `json:"concurrency" yaml:"concurrency" validate:"gte=0,lte=256"`
	RefreshEvery Duration `json:"refresh_every" yaml:"refresh_every"`
	HistorySize  int      `json:"history_size" yaml:"history_size" validate:"gte=1,lte=10000"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// APIConfig configures the HTTP API. Control endpoints require a bearer
// token signed with JWTSecret; without a secret they are disabled.
type APIConfig struct {
	ListenAddr  string   `json:"listen_addr" yaml:"listen_addr"`
	JWTSecret   string   `json:"jwt_secret" yaml:"jwt_secret" validate:"omitempty,min=32"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// GRPCConfig configures the health server; an empty address disables it.
type GRPCConfig struct {
	ListenAddr string         `json:"listen_addr" yaml:"listen_addr"`
	Security   SecurityConfig `json:"security" yaml:"security"`
}

type SecurityMode string

const (
	SecurityModeNone SecurityMode = "none"
	SecurityModeMTLS SecurityMode = "mtls"
)

// SecurityConfig selects transport security for the gRPC endpoint. In mtls
// mode CertDir holds root.pem, server.pem, server-key.pem and, for clients,
// client.pem and client-key.pem.
type SecurityConfig struct {
	Mode       SecurityMode `json:"mode" yaml:"mode" validate:"omitempty,oneof=none mtls"`
	CertDir    string       `json:"cert_dir" yaml:"cert_dir" validate:"required_if=Mode mtls"`
	ServerName string       `json:"server_name" yaml:"server_name"`
}

const (
	WebhookFormatJSON    = "json"
	WebhookFormatDiscord = "discord"
)

// AlertsConfig lists the webhooks notified when the router goes down,
// recovers, or starts returning degraded sections.
type AlertsConfig struct {
	Webhooks []WebhookConfig `json:"webhooks" yaml:"webhooks" validate:"dive"`
}

// WebhookConfig is one alert destination. Template, when set, is a
// text/template producing the JSON body from .alert.
type WebhookConfig struct {
	Enabled  bool              `json:"enabled" yaml:"enabled"`
	URL      string            `json:"url" yaml:"url" validate:"omitempty,url"`
	Format   string            `json:"format" yaml:"format" validate:"omitempty,oneof=json discord"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Template string            `json:"template,omitempty" yaml:"template,omitempty"`
	Cooldown Duration          `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Router.Timeout == 0 {
		c.Router.Timeout = DefaultCallTimeout
	}

	if c.Poll.Interval == 0 {
		c.Poll.Interval = DefaultPollInterval
	}

	if c.Poll.FailurePolicy == "" {
		c.Poll.FailurePolicy = FailurePolicyRetain
	}

	if c.Poll.RefreshEvery == 0 {
		c.Poll.RefreshEvery = DefaultRefreshEvery
	}

	if c.Poll.HistorySize == 0 {
		c.Poll.HistorySize = DefaultHistorySize
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.API.ListenAddr == "" {
		c.API.ListenAddr = DefaultHTTPListenAddr
	}

	if c.GRPC.Security.Mode == "" {
		c.GRPC.Security.Mode = SecurityModeNone
	}

	for i := range c.Alerts.Webhooks {
		if c.Alerts.Webhooks[i].Format == "" {
			c.Alerts.Webhooks[i].Format = WebhookFormatJSON
		}
	}
}

var validate = validator.New()

// Validate checks struct tags, then the cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		msgs := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			msgs[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
		}

		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}

	if c.Poll.Interval < MinPollInterval || c.Poll.Interval > MaxPollInterval {
		return fmt.Errorf("%w: poll interval %s outside %s..%s", ErrInvalidConfig,
			time.Duration(c.Poll.Interval), time.Duration(MinPollInterval), time.Duration(MaxPollInterval))
	}

	if c.Router.Timeout <= 0 {
		return fmt.Errorf("%w: router timeout must be positive", ErrInvalidConfig)
	}

	for i, hook := range c.Alerts.Webhooks {
		if hook.Enabled && hook.URL == "" {
			return fmt.Errorf("%w: alerts.webhooks[%d] is enabled without a url", ErrInvalidConfig, i)
		}
	}

	return nil
}
