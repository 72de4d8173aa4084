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
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t testing.TB, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func strPtr(s string) *string { return &s }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func formatInt(i int64) string { return strconv.FormatInt(i, 10) }

// demoServer is a loopback stand-in for the server: it remembers written
// points and renders them back for any SELECT on the demo table.
type demoServer struct {
	t *testing.T

	mu     sync.Mutex
	points []wirePoint
	// lastWrite captures the most recent decoded write request.
	lastWrite wireWriteRequest
	// lastHeader captures the headers of the most recent request.
	lastHeader http.Header

	srv *httptest.Server
}

func newDemoServer(t *testing.T) *demoServer {
	ds := &demoServer{t: t}
	ds.srv = httptest.NewServer(http.HandlerFunc(ds.handle))
	t.Cleanup(ds.srv.Close)
	return ds
}

func (ds *demoServer) handle(w http.ResponseWriter, r *http.Request) {
	ds.mu.Lock()
	ds.lastHeader = r.Header.Clone()
	ds.mu.Unlock()

	switch r.URL.Path {
	case "/v1/write":
		body, err := io.ReadAll(r.Body)
		require.NoError(ds.t, err)
		var req wireWriteRequest
		require.NoError(ds.t, json.Unmarshal(body, &req))

		ds.mu.Lock()
		ds.lastWrite = req
		ds.points = append(ds.points, req.Points...)
		n := len(req.Points)
		ds.mu.Unlock()

		writeJSON(ds.t, w, wireWriteResponse{Success: uint32(n)})

	case "/v1/sql":
		body, err := io.ReadAll(r.Body)
		require.NoError(ds.t, err)
		var req wireQueryRequest
		require.NoError(ds.t, json.Unmarshal(body, &req))

		if strings.Contains(req.SQL, "sleep") {
			select {
			case <-time.After(300 * time.Millisecond):
			case <-r.Context().Done():
				return
			}
		}
		if strings.Contains(req.SQL, "boom") {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(ds.t, w, QueryError{Code: 400, Message: "Table not found: boom"})
			return
		}
		if !strings.Contains(strings.ToUpper(req.SQL), "SELECT") {
			// DDL and friends: nothing to return
			writeJSON(ds.t, w, wireQueryResponse{AffectedRows: 0, Format: ResultFormatJSON})
			return
		}

		ds.mu.Lock()
		rows := make([][]*string, 0, len(ds.points))
		for _, p := range ds.points {
			name, err := p.Tags["name"].Str()
			require.NoError(ds.t, err)
			value, err := p.Fields["value"].Double()
			require.NoError(ds.t, err)
			rows = append(rows, []*string{
				strPtr(name),
				strPtr(formatFloat(value)),
				strPtr(formatInt(p.Timestamp)),
			})
		}
		ds.mu.Unlock()

		raw, err := json.Marshal(rows)
		require.NoError(ds.t, err)
		writeJSON(ds.t, w, wireQueryResponse{
			Format: ResultFormatJSON,
			Schema: []wireColumnSchema{
				{Name: "name", Type: DataTypeString},
				{Name: "value", Type: DataTypeDouble},
				{Name: "t", Type: DataTypeTimestamp},
			},
			Rows: raw,
		})

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	client, err := NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestWriteQueryRoundTrip(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{Endpoint: ds.srv.URL, DefaultDatabase: "public"})

	ctx := context.Background()
	const ts = int64(1700000000000)

	point, err := NewPointBuilder("demo").
		Timestamp(ts).
		Tag("name", StringValue("test_tag1")).
		Field("value", DoubleValue(0.4242)).
		Build()
	require.NoError(t, err)

	writeResp, err := client.Write(ctx, nil, NewWriteRequest().Add(point))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), writeResp.Success)
	assert.Equal(t, uint32(0), writeResp.Failed)
	assert.NotEmpty(t, writeResp.RequestID)

	queryResp, err := client.SQLQuery(ctx, nil,
		NewSQLQueryRequest([]string{"demo"}, "SELECT * FROM demo"))
	require.NoError(t, err)
	require.Equal(t, 1, queryResp.NumRows())

	row, err := queryResp.RowByIdx(0)
	require.NoError(t, err)

	name, ok := row.ColumnByName("name")
	require.True(t, ok)
	gotName, err := name.Value.Str()
	require.NoError(t, err)
	assert.Equal(t, "test_tag1", gotName)

	value, ok := row.ColumnByName("value")
	require.True(t, ok)
	gotValue, err := value.Value.Double()
	require.NoError(t, err)
	assert.InDelta(t, 0.4242, gotValue, 1e-9)

	tcol, ok := row.ColumnByName("t")
	require.True(t, ok)
	gotTs, err := tcol.Value.Timestamp()
	require.NoError(t, err)
	assert.Equal(t, ts, gotTs)
}

func TestQueryTimeoutLeavesClientUsable(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{Endpoint: ds.srv.URL})

	ctx := context.Background()
	rpcCtx := &RpcContext{Timeout: 50 * time.Millisecond}

	_, err := client.SQLQuery(ctx, rpcCtx,
		NewSQLQueryRequest([]string{"demo"}, "SELECT sleep FROM demo"))
	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "query", terr.Op)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// the client stays usable after a timeout
	resp, err := client.SQLQuery(ctx, nil,
		NewSQLQueryRequest([]string{"demo"}, "SELECT * FROM demo"))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.NumRows())
}

func TestQueryServerDiagnostic(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{Endpoint: ds.srv.URL})

	_, err := client.SQLQuery(context.Background(), nil,
		NewSQLQueryRequest([]string{"boom"}, "SELECT boom FROM boom"))

	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 400, qerr.Code)
	assert.Contains(t, qerr.Message, "Table not found")
}

func TestWriteAfterCloseFails(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{Endpoint: ds.srv.URL})

	ctx := context.Background()
	point, err := NewPointBuilder("demo").Timestamp(1).Field("v", DoubleValue(1)).Build()
	require.NoError(t, err)

	_, err = client.Write(ctx, nil, NewWriteRequest().Add(point))
	require.NoError(t, err)

	client.Close()
	client.Close() // idempotent

	_, err = client.Write(ctx, nil, NewWriteRequest().Add(point))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = client.SQLQuery(ctx, nil, NewSQLQueryRequest([]string{"demo"}, "SELECT 1"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseBeforeFirstOperation(t *testing.T) {
	client, err := NewClient(&Config{Endpoint: "127.0.0.1:8831"})
	require.NoError(t, err)
	client.Close()

	_, err = client.SQLQuery(context.Background(), nil,
		NewSQLQueryRequest([]string{"demo"}, "SELECT 1"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMalformedEndpoint(t *testing.T) {
	cases := []string{"", "ftp://host:1234", "http://"}
	for _, endpoint := range cases {
		_, err := NewBuilder(endpoint, ModeStandalone).Build()
		var cerr *ConnectionError
		assert.ErrorAs(t, err, &cerr, "endpoint %q", endpoint)
	}
}

func TestUnrecognizedMode(t *testing.T) {
	_, err := NewClient(&Config{Endpoint: "127.0.0.1:8831", Mode: Mode("proxy")})
	var cerr *ConnectionError
	assert.ErrorAs(t, err, &cerr)
}

func TestRequestHeaders(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{
		Endpoint: ds.srv.URL,
		Auth:     &Auth{User: "user", Password: "pass"},
	})

	point, err := NewPointBuilder("demo").Timestamp(1).Field("v", DoubleValue(1)).Build()
	require.NoError(t, err)
	_, err = client.Write(context.Background(), nil, NewWriteRequest().Add(point))
	require.NoError(t, err)

	ds.mu.Lock()
	hdr := ds.lastHeader
	ds.mu.Unlock()

	assert.Equal(t, "Basic "+basicAuth("user", "pass"), hdr.Get("Authorization"))
	_, err = uuid.Parse(hdr.Get("X-Request-Id"))
	assert.NoError(t, err)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
}

func TestDatabaseResolution(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{Endpoint: ds.srv.URL, DefaultDatabase: "public"})

	ctx := context.Background()
	point, err := NewPointBuilder("demo").Timestamp(1).Field("v", DoubleValue(1)).Build()
	require.NoError(t, err)

	_, err = client.Write(ctx, nil, NewWriteRequest().Add(point))
	require.NoError(t, err)
	ds.mu.Lock()
	assert.Equal(t, "public", ds.lastWrite.Database)
	ds.mu.Unlock()

	_, err = client.Write(ctx, &RpcContext{Database: "metrics"}, NewWriteRequest().Add(point))
	require.NoError(t, err)
	ds.mu.Lock()
	assert.Equal(t, "metrics", ds.lastWrite.Database)
	ds.mu.Unlock()
}

func TestConcurrentOperations(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{Endpoint: ds.srv.URL, ThreadNum: 2})

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			point, err := NewPointBuilder("demo").
				Timestamp(int64(i + 1)).
				Field("v", DoubleValue(float64(i))).
				Build()
			if err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = client.Write(ctx, nil, NewWriteRequest().Add(point))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "call %d", i)
	}
	ds.mu.Lock()
	assert.Len(t, ds.points, 16)
	ds.mu.Unlock()
}

func TestFutureWaitReplaysOutcome(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{Endpoint: ds.srv.URL})

	ctx := context.Background()
	point, err := NewPointBuilder("demo").Timestamp(1).Field("v", DoubleValue(1)).Build()
	require.NoError(t, err)

	f, err := client.WriteAsync(ctx, nil, NewWriteRequest().Add(point))
	require.NoError(t, err)

	first, err := f.Wait(ctx)
	require.NoError(t, err)
	second, err := f.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSubmitValidation(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{Endpoint: ds.srv.URL})
	ctx := context.Background()

	var verr *ValidationError

	_, err := client.Write(ctx, nil, NewWriteRequest())
	assert.ErrorAs(t, err, &verr)

	_, err = client.SQLQuery(ctx, nil, NewSQLQueryRequest([]string{"demo"}, ""))
	assert.ErrorAs(t, err, &verr)

	_, err = client.SQLQuery(ctx, nil, NewSQLQueryRequest(nil, "SELECT 1"))
	assert.ErrorAs(t, err, &verr)

	_, err = client.SQLQuery(ctx, nil, nil)
	assert.ErrorAs(t, err, &verr)
}

func TestWriteRequestMutationAfterSubmit(t *testing.T) {
	ds := newDemoServer(t)
	client := newTestClient(t, &Config{Endpoint: ds.srv.URL})

	ctx := context.Background()
	p1, err := NewPointBuilder("demo").Timestamp(1).Field("v", DoubleValue(1)).Build()
	require.NoError(t, err)
	p2, err := NewPointBuilder("demo").Timestamp(2).Field("v", DoubleValue(2)).Build()
	require.NoError(t, err)

	req := NewWriteRequest().Add(p1)
	f, err := client.WriteAsync(ctx, nil, req)
	require.NoError(t, err)
	req.Add(p2) // must not affect the in-flight call

	resp, err := f.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), resp.Success)
}
