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
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrClosed is returned when an operation is attempted on a closed client.
// Close is idempotent, but any write or query after Close fails with this error.
var ErrClosed = errors.New("chronodb: client is closed")

// ValidationError reports a malformed request detected locally, before
// anything is sent to the server. It is never worth retrying.
type ValidationError struct {
	// Field names the offending part of the request, e.g. "metric".
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("chronodb: invalid %s: %s", e.Field, e.Reason)
}

// ConnectionError reports that the configured endpoint is malformed or that
// the connection could not be prepared. Callers may retry with backoff.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("chronodb: cannot connect to %q: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError reports a network-level failure while a request was in
// flight. The request may or may not have been applied server-side.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chronodb: transport to %q failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports that an operation exceeded its deadline. The client
// remains usable afterwards. As with TransportError, a timed-out write may
// still have been applied server-side.
type TimeoutError struct {
	// Op is the operation that timed out: "write", "query" or "route".
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("chronodb: %s did not complete within %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// IndexError reports an out-of-range row or column access.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("chronodb: index %d out of range [0, %d)", e.Index, e.Len)
}

// QueryError carries the server's diagnostic for a rejected statement, such
// as malformed SQL or a missing table. It is not retried automatically.
type QueryError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("chronodb: server error %d: %s", e.Code, e.Message)
}

// asCallError folds a transport-layer failure into the taxonomy: a deadline
// becomes a TimeoutError, everything else a TransportError.
func asCallError(op, endpoint string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Timeout: timeout}
	}
	return &TransportError{Endpoint: endpoint, Err: err}
}

func checkStatusCodeOK(resp *http.Response) error {
	return checkStatusCode(resp, 200)
}

func checkStatusCode(resp *http.Response, expected int) error {
	if resp.StatusCode == expected {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	msg := string(data)
	if err != nil {
		return fmt.Errorf("%d: %s", resp.StatusCode, msg)
	}
	var errResp QueryError
	if err := json.Unmarshal(data, &errResp); err != nil || errResp.Message == "" {
		return fmt.Errorf("%d: %s", resp.StatusCode, msg)
	}
	if errResp.Code == 0 {
		errResp.Code = resp.StatusCode
	}
	return &errResp
}

// sneakyBodyClose closes the body and ignores the error.
// This is useful to close the HTTP response body when we don't care about the error.
func sneakyBodyClose(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
