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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// routeAPI defines the interface under /v1/route (direct mode only).
type routeAPI interface {
	fetchRoutes(ctx context.Context, tables []string) (map[string][]*url.URL, error)
}

var _ routeAPI = (*Client)(nil)

type wireRouteResponse struct {
	// Routes maps a table name to the endpoints of the nodes owning it.
	Routes map[string][]string `json:"routes"`
}

// routeCache remembers table routes fetched from the server. Entries are
// dropped when a call through them fails at the transport level.
type routeCache struct {
	mu     sync.RWMutex
	routes map[string][]*url.URL
}

func newRouteCache() *routeCache {
	return &routeCache{routes: make(map[string][]*url.URL)}
}

func (rc *routeCache) get(table string) ([]*url.URL, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	eps, ok := rc.routes[table]
	return eps, ok
}

func (rc *routeCache) put(table string, endpoints []*url.URL) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.routes[table] = endpoints
}

func (rc *routeCache) invalidate(table string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.routes, table)
}

// pickEndpoint selects one endpoint of a route group. The choice is a stable
// hash of the table name so one table always lands on the same node.
func pickEndpoint(table string, endpoints []*url.URL) *url.URL {
	if len(endpoints) == 0 {
		return nil
	}
	return endpoints[xxhash.Sum64String(table)%uint64(len(endpoints))]
}

// endpointFor resolves the endpoint serving the given table. Standalone mode
// always answers with the configured endpoint; direct mode consults the
// route cache, fetching routes from the server on a miss.
func (c *Client) endpointFor(ctx context.Context, table string) (*url.URL, error) {
	if c.cfg.Mode != ModeDirect {
		return c.base, nil
	}

	if eps, ok := c.routes.get(table); ok {
		if ep := pickEndpoint(table, eps); ep != nil {
			return ep, nil
		}
	}

	fetched, err := c.fetchRoutes(ctx, []string{table})
	if err != nil {
		return nil, err
	}
	eps, ok := fetched[table]
	if !ok || len(eps) == 0 {
		// The server knows no route yet, e.g. the table does not exist.
		// Fall back to the configured endpoint and let it answer.
		return c.base, nil
	}
	return pickEndpoint(table, eps), nil
}

func (c *Client) fetchRoutes(ctx context.Context, tables []string) (map[string][]*url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	u := c.base.JoinPath("/v1/route")
	q := u.Query()
	q.Set("tables", strings.Join(tables, ","))
	u.RawQuery = q.Encode()

	hdr := rpcHeader(uuid.NewString(), c.cfg.Auth, CompressionNone)
	resp, err := c.http.Get(ctx, u, hdr)
	if err != nil {
		return nil, asCallError("route", c.base.String(), c.cfg.ConnectTimeout, err)
	}
	defer sneakyBodyClose(resp.Body)
	if err := checkStatusCodeOK(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var respData wireRouteResponse
	if err := json.Unmarshal(data, &respData); err != nil {
		return nil, err
	}

	out := make(map[string][]*url.URL, len(respData.Routes))
	for table, raw := range respData.Routes {
		eps := make([]*url.URL, 0, len(raw))
		for _, e := range raw {
			ep, err := parseEndpoint(e)
			if err != nil {
				return nil, fmt.Errorf("route for %s: %w", table, err)
			}
			eps = append(eps, ep)
		}
		c.routes.put(table, eps)
		out[table] = eps
	}
	return out, nil
}
