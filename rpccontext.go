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

import "time"

// RpcContext carries per-call metadata, as opposed to the connection-level
// settings in Config. Create one per request; do not share across calls.
//
// The zero value is valid and means "use the client defaults everywhere".
type RpcContext struct {
	// Database overrides the client's default database for this call.
	Database string
	// Timeout bounds this call. Zero falls back to the client's default
	// write or read timeout depending on the operation.
	Timeout time.Duration
	// Auth overrides the client's credentials for this call.
	Auth *Auth
}

// database resolves the effective database for a call.
func (c *RpcContext) database(fallback string) string {
	if c != nil && c.Database != "" {
		return c.Database
	}
	return fallback
}

// timeout resolves the effective timeout for a call.
func (c *RpcContext) timeout(fallback time.Duration) time.Duration {
	if c != nil && c.Timeout > 0 {
		return c.Timeout
	}
	return fallback
}

func (c *RpcContext) auth(fallback *Auth) *Auth {
	if c != nil && c.Auth != nil {
		return c.Auth
	}
	return fallback
}
