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
	"log/slog"
	"time"
)

// Builder assembles a Config and builds an immutable Client from it.
//
//	client, err := chronodb.NewBuilder("127.0.0.1:8831", chronodb.ModeStandalone).
//		DefaultDatabase("public").
//		ThreadNum(4).
//		Build()
type Builder struct {
	cfg Config
}

func NewBuilder(endpoint string, mode Mode) *Builder {
	return &Builder{cfg: Config{Endpoint: endpoint, Mode: mode}}
}

// ThreadNum sets the dispatch worker pool size. Non-positive values default
// to the number of CPUs.
func (b *Builder) ThreadNum(n int) *Builder {
	b.cfg.ThreadNum = n
	return b
}

// DefaultDatabase sets the database used when an RpcContext names none.
func (b *Builder) DefaultDatabase(db string) *Builder {
	b.cfg.DefaultDatabase = db
	return b
}

// DefaultWriteTimeout bounds write calls that carry no RpcContext timeout.
func (b *Builder) DefaultWriteTimeout(d time.Duration) *Builder {
	b.cfg.DefaultWriteTimeout = d
	return b
}

// DefaultReadTimeout bounds query calls that carry no RpcContext timeout.
func (b *Builder) DefaultReadTimeout(d time.Duration) *Builder {
	b.cfg.DefaultReadTimeout = d
	return b
}

// ConnectTimeout bounds route fetches and connection setup.
func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	b.cfg.ConnectTimeout = d
	return b
}

// Auth sets the default basic-auth credentials.
func (b *Builder) Auth(user, password string) *Builder {
	b.cfg.Auth = &Auth{User: user, Password: password}
	return b
}

// Compression selects the request body codec.
func (b *Builder) Compression(c Compression) *Builder {
	b.cfg.Compression = c
	return b
}

// Logger injects a structured logger for debug-level request logs.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.cfg.Logger = l
	return b
}

// Transport replaces the default HTTP transport.
func (b *Builder) Transport(h HTTPClient) *Builder {
	b.cfg.HTTP = h
	return b
}

// Build validates the configuration and returns the client. A malformed
// endpoint fails with a ConnectionError.
func (b *Builder) Build() (*Client, error) {
	return NewClient(&b.cfg)
}
