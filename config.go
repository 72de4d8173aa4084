/*
 * Copyright 2025 ChronoDB Project Authors
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

package chronodb

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects how the client reaches the server.
type Mode string

const (
	// ModeStandalone sends all traffic to the single configured endpoint.
	ModeStandalone Mode = "standalone"
	// ModeDirect asks the server for per-table routes and sends each
	// batch straight to the owning node.
	ModeDirect Mode = "direct"
)

// Auth holds basic-auth credentials. It is optional and only required when
// the server enforces authentication.
type Auth struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

const (
	defaultWriteTimeout   = 5 * time.Second
	defaultReadTimeout    = 60 * time.Second
	defaultConnectTimeout = 3 * time.Second
)

// Config defines the connection-level configuration. Per-call overrides go
// in RpcContext instead.
type Config struct {
	// Endpoint is the host:port (or full URL) of the server. A missing
	// scheme defaults to http.
	Endpoint string `yaml:"endpoint"`
	// Mode is the access mode, ModeStandalone by default.
	Mode Mode `yaml:"mode"`
	// ThreadNum sizes the client's dispatch worker pool. Non-positive
	// values default to the number of CPUs.
	ThreadNum int `yaml:"thread_num"`
	// DefaultDatabase is used when an RpcContext names no database.
	DefaultDatabase string `yaml:"default_database"`
	// DefaultWriteTimeout bounds write calls with no RpcContext timeout.
	DefaultWriteTimeout time.Duration `yaml:"-"`
	// DefaultReadTimeout bounds query calls with no RpcContext timeout.
	DefaultReadTimeout time.Duration `yaml:"-"`
	// ConnectTimeout bounds route fetches and connection setup.
	ConnectTimeout time.Duration `yaml:"-"`
	// Auth holds the default credentials.
	Auth *Auth `yaml:"auth"`
	// Compression selects the request body codec.
	Compression Compression `yaml:"compression"`
	// Logger receives debug-level request logs. Nil discards.
	Logger *slog.Logger `yaml:"-"`
	// HTTP replaces the default transport. Nil uses NewHTTPClient.
	HTTP HTTPClient `yaml:"-"`
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Mode == "" {
		out.Mode = ModeStandalone
	}
	if out.ThreadNum <= 0 {
		out.ThreadNum = runtime.NumCPU()
	}
	if out.DefaultWriteTimeout <= 0 {
		out.DefaultWriteTimeout = defaultWriteTimeout
	}
	if out.DefaultReadTimeout <= 0 {
		out.DefaultReadTimeout = defaultReadTimeout
	}
	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = defaultConnectTimeout
	}
	if out.Compression == "" {
		out.Compression = CompressionNone
	}
	if out.Logger == nil {
		out.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if out.HTTP == nil {
		out.HTTP = NewHTTPClient()
	}
	return &out
}

// ConfigFromFile loads a Config from a YAML file. Timeouts are given as Go
// duration strings, e.g. "5s".
func ConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Endpoint        string      `yaml:"endpoint"`
		Mode            Mode        `yaml:"mode"`
		ThreadNum       int         `yaml:"thread_num"`
		DefaultDatabase string      `yaml:"default_database"`
		WriteTimeout    string      `yaml:"write_timeout"`
		ReadTimeout     string      `yaml:"read_timeout"`
		ConnectTimeout  string      `yaml:"connect_timeout"`
		Compression     Compression `yaml:"compression"`
		Auth            *Auth       `yaml:"auth"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	parse := func(name, s string) (time.Duration, error) {
		if s == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %s: %w", path, name, err)
		}
		return d, nil
	}

	cfg := &Config{
		Endpoint:        raw.Endpoint,
		Mode:            raw.Mode,
		ThreadNum:       raw.ThreadNum,
		DefaultDatabase: raw.DefaultDatabase,
		Compression:     raw.Compression,
		Auth:            raw.Auth,
	}
	if cfg.DefaultWriteTimeout, err = parse("write_timeout", raw.WriteTimeout); err != nil {
		return nil, err
	}
	if cfg.DefaultReadTimeout, err = parse("read_timeout", raw.ReadTimeout); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout, err = parse("connect_timeout", raw.ConnectTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}
