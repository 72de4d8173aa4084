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
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type clientState int

const (
	stateUnconnected clientState = iota
	stateConnected
	stateClosed
)

// Client is the entry point for writing points and running queries.
//
// A Client is immutable after construction and safe for concurrent use. All
// operations are dispatched through a fixed pool of ThreadNum workers; the
// pool starts lazily on the first operation and stops on Close.
//
// Writes are at-least-once: a timeout or transport failure does not
// guarantee the batch was not applied server-side. The client never retries
// on its own.
type Client struct {
	cfg    *Config
	base   *url.URL
	http   HTTPClient
	logger *slog.Logger
	routes *routeCache

	mu    sync.Mutex
	state clientState
	jobs  chan func()
	wg    sync.WaitGroup
}

// NewClient validates the configuration and creates a client. A malformed
// endpoint fails with a ConnectionError. The connection itself is prepared
// lazily on the first operation.
func NewClient(config *Config) (*Client, error) {
	cfg := config.withDefaults()
	base, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, &ConnectionError{Endpoint: config.Endpoint, Err: err}
	}
	if cfg.Mode != ModeStandalone && cfg.Mode != ModeDirect {
		return nil, &ConnectionError{Endpoint: config.Endpoint, Err: fmt.Errorf("unrecognized mode: %s", cfg.Mode)}
	}
	return &Client{
		cfg:    cfg,
		base:   base,
		http:   cfg.HTTP,
		logger: cfg.Logger,
		routes: newRouteCache(),
	}, nil
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	if endpoint == "" {
		return nil, errors.New("empty endpoint")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("endpoint has no host")
	}
	return u, nil
}

// dispatch hands a job to the worker pool, starting it on first use.
// Sending under the lock keeps dispatch ordered before a concurrent Close.
func (c *Client) dispatch(job func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateClosed:
		return ErrClosed
	case stateUnconnected:
		c.jobs = make(chan func())
		for i := 0; i < c.cfg.ThreadNum; i++ {
			c.wg.Add(1)
			go c.worker()
		}
		c.state = stateConnected
	}

	c.jobs <- job
	return nil
}

func (c *Client) worker() {
	defer c.wg.Done()
	for job := range c.jobs {
		job()
	}
}

// Close stops the worker pool and marks the client closed. Close is
// idempotent; any write or query after Close fails with ErrClosed.
func (c *Client) Close() {
	c.mu.Lock()
	prev := c.state
	c.state = stateClosed
	if prev == stateConnected {
		close(c.jobs)
	}
	c.mu.Unlock()

	if prev == stateConnected {
		c.wg.Wait()
	}
}

// writeOutcome and queryOutcome carry a completed operation to its future.
type writeOutcome struct {
	resp *WriteResponse
	err  error
}

type queryOutcome struct {
	resp *SQLQueryResponse
	err  error
}

// WriteFuture is the pending result of WriteAsync. A future belongs to one
// goroutine; Wait may be called repeatedly and replays the outcome once the
// operation completed.
type WriteFuture struct {
	ch   chan writeOutcome
	out  writeOutcome
	done bool
}

// Wait blocks until the write completes or ctx is done.
func (f *WriteFuture) Wait(ctx context.Context) (*WriteResponse, error) {
	if f.done {
		return f.out.resp, f.out.err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-f.ch:
		f.out = out
		f.done = true
		return out.resp, out.err
	}
}

// QueryFuture is the pending result of SQLQueryAsync.
type QueryFuture struct {
	ch   chan queryOutcome
	out  queryOutcome
	done bool
}

// Wait blocks until the query completes or ctx is done.
func (f *QueryFuture) Wait(ctx context.Context) (*SQLQueryResponse, error) {
	if f.done {
		return f.out.resp, f.out.err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-f.ch:
		f.out = out
		f.done = true
		return out.resp, out.err
	}
}

// WriteAsync submits the request's points without blocking on the server.
// Validation failures surface immediately; everything later arrives through
// the returned future.
//
// The points are snapshotted here: mutating req afterwards does not affect
// the in-flight call.
func (c *Client) WriteAsync(ctx context.Context, rpcCtx *RpcContext, req *WriteRequest) (*WriteFuture, error) {
	if req == nil || len(req.Points()) == 0 {
		return nil, &ValidationError{Field: "points", Reason: "write request has no points"}
	}

	points := req.snapshot()
	timeout := rpcCtx.timeout(c.cfg.DefaultWriteTimeout)
	database := rpcCtx.database(c.cfg.DefaultDatabase)
	auth := rpcCtx.auth(c.cfg.Auth)

	f := &WriteFuture{ch: make(chan writeOutcome, 1)}
	err := c.dispatch(func() {
		resp, err := c.doWrite(ctx, timeout, database, auth, points)
		f.ch <- writeOutcome{resp: resp, err: err}
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Write is the blocking wrapper over WriteAsync.
//
// A nil error does not mean every point was applied: per-point failures are
// reported in WriteResponse.Failed, not raised. Only a whole-call failure
// (validation, transport, timeout) returns an error.
func (c *Client) Write(ctx context.Context, rpcCtx *RpcContext, req *WriteRequest) (*WriteResponse, error) {
	f, err := c.WriteAsync(ctx, rpcCtx, req)
	if err != nil {
		return nil, err
	}
	return f.Wait(ctx)
}

// SQLQueryAsync submits the query without blocking on the server.
func (c *Client) SQLQueryAsync(ctx context.Context, rpcCtx *RpcContext, req *SQLQueryRequest) (*QueryFuture, error) {
	if req == nil {
		return nil, &ValidationError{Field: "query", Reason: "query request is nil"}
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	timeout := rpcCtx.timeout(c.cfg.DefaultReadTimeout)
	database := rpcCtx.database(c.cfg.DefaultDatabase)
	auth := rpcCtx.auth(c.cfg.Auth)

	f := &QueryFuture{ch: make(chan queryOutcome, 1)}
	err := c.dispatch(func() {
		resp, err := c.doQuery(ctx, timeout, database, auth, req.tables, req.sql, req.Format)
		f.ch <- queryOutcome{resp: resp, err: err}
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// SQLQuery is the blocking wrapper over SQLQueryAsync. Server-side
// rejections (malformed SQL, missing table) fail with a QueryError carrying
// the server's diagnostic.
func (c *Client) SQLQuery(ctx context.Context, rpcCtx *RpcContext, req *SQLQueryRequest) (*SQLQueryResponse, error) {
	f, err := c.SQLQueryAsync(ctx, rpcCtx, req)
	if err != nil {
		return nil, err
	}
	return f.Wait(ctx)
}

// writeGroup is the slice of a batch bound for one endpoint.
type writeGroup struct {
	endpoint *url.URL
	points   []Point
	metrics  []string
}

func (c *Client) groupByEndpoint(ctx context.Context, points []Point) ([]*writeGroup, error) {
	if c.cfg.Mode != ModeDirect {
		metrics := make([]string, 0, len(points))
		for _, p := range points {
			metrics = append(metrics, p.Metric())
		}
		return []*writeGroup{{endpoint: c.base, points: points, metrics: metrics}}, nil
	}

	groups := make(map[string]*writeGroup)
	var order []string
	for _, p := range points {
		ep, err := c.endpointFor(ctx, p.Metric())
		if err != nil {
			return nil, err
		}
		key := ep.String()
		g, ok := groups[key]
		if !ok {
			g = &writeGroup{endpoint: ep}
			groups[key] = g
			order = append(order, key)
		}
		g.points = append(g.points, p)
		g.metrics = append(g.metrics, p.Metric())
	}

	out := make([]*writeGroup, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out, nil
}

func (c *Client) doWrite(ctx context.Context, timeout time.Duration, database string, auth *Auth, points []Point) (*WriteResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	groups, err := c.groupByEndpoint(ctx, points)
	if err != nil {
		return nil, err
	}

	out := &WriteResponse{}
	var firstErr error
	for _, g := range groups {
		requestID := uuid.NewString()
		c.logger.Debug("submitting write",
			slog.String("request_id", requestID),
			slog.String("endpoint", g.endpoint.String()),
			slog.Int("points", len(g.points)))

		resp, err := c.submitWrite(ctx, &writeCall{
			endpoint:  g.endpoint,
			database:  database,
			auth:      auth,
			requestID: requestID,
			points:    g.points,
		})
		if err != nil {
			err = mapRPCError("write", g.endpoint.String(), timeout, err)
			for _, m := range g.metrics {
				c.routes.invalidate(m)
			}
			if len(groups) == 1 {
				// the whole transport call failed
				return nil, err
			}
			// partial failure across routes: report, don't raise
			if firstErr == nil {
				firstErr = err
			}
			out.Failed += uint32(len(g.points))
			out.Failures = append(out.Failures, WriteFailure{
				Endpoint: g.endpoint.String(),
				Points:   len(g.points),
				Err:      err,
			})
			continue
		}
		out.merge(&WriteResponse{Success: resp.Success, Failed: resp.Failed, RequestID: requestID})
	}

	if out.Success == 0 && firstErr != nil {
		// every route failed; surface the first failure as the call error
		return nil, firstErr
	}
	c.logger.Debug("write completed",
		slog.Uint64("success", uint64(out.Success)),
		slog.Uint64("failed", uint64(out.Failed)))
	return out, nil
}

func (c *Client) doQuery(ctx context.Context, timeout time.Duration, database string, auth *Auth, tables []string, sql string, format ResultFormat) (*SQLQueryResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// queries route by the first table in scope
	endpoint, err := c.endpointFor(ctx, tables[0])
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	c.logger.Debug("submitting query",
		slog.String("request_id", requestID),
		slog.String("endpoint", endpoint.String()),
		slog.String("sql", sql))

	resp, err := c.submitQuery(ctx, &queryCall{
		endpoint:  endpoint,
		database:  database,
		auth:      auth,
		requestID: requestID,
		tables:    tables,
		sql:       sql,
		format:    format,
	})
	if err != nil {
		err = mapRPCError("query", endpoint.String(), timeout, err)
		var te *TransportError
		if errors.As(err, &te) {
			c.routes.invalidate(tables[0])
		}
		return nil, err
	}

	c.logger.Debug("query completed",
		slog.String("request_id", requestID),
		slog.Int("rows", resp.NumRows()))
	return resp, nil
}

// mapRPCError folds an RPC failure into the error taxonomy, passing
// server-side diagnostics (QueryError) through untouched.
func mapRPCError(op, endpoint string, timeout time.Duration, err error) error {
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return asCallError(op, endpoint, timeout, err)
}
