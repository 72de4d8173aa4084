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
	"net/url"
)

// ResultFormat is the wire encoding of query result rows.
type ResultFormat string

const (
	// ResultFormatJSON encodes rows as JSON lists of string-rendered cells.
	ResultFormatJSON ResultFormat = "json"
	// ResultFormatArrow encodes rows as BASE64 Arrow IPC record batches.
	ResultFormatArrow ResultFormat = "arrow"
)

// queryAPI defines the interface under /v1/sql.
type queryAPI interface {
	submitQuery(ctx context.Context, call *queryCall) (*SQLQueryResponse, error)
}

var _ queryAPI = (*Client)(nil)

type wireQueryRequest struct {
	Database string       `json:"database,omitempty"`
	Tables   []string     `json:"tables"`
	SQL      string       `json:"sql"`
	Format   ResultFormat `json:"format"`
}

type wireColumnSchema struct {
	Name string   `json:"name"`
	Type DataType `json:"type"`
}

type wireQueryResponse struct {
	AffectedRows uint32             `json:"affected_rows"`
	Format       ResultFormat       `json:"format"`
	Schema       []wireColumnSchema `json:"schema"`
	// Rows is either a JSON array of rows (ResultFormatJSON) or a BASE64
	// string of Arrow IPC batches (ResultFormatArrow).
	Rows json.RawMessage `json:"rows"`
}

// queryCall is one resolved query RPC bound to an endpoint.
type queryCall struct {
	endpoint  *url.URL
	database  string
	auth      *Auth
	requestID string
	tables    []string
	sql       string
	format    ResultFormat
}

func (c *Client) submitQuery(ctx context.Context, call *queryCall) (*SQLQueryResponse, error) {
	u := call.endpoint.JoinPath("/v1/sql")

	format := call.format
	if format == "" {
		format = ResultFormatJSON
	}
	body, err := json.Marshal(&wireQueryRequest{
		Database: call.database,
		Tables:   call.tables,
		SQL:      call.sql,
		Format:   format,
	})
	if err != nil {
		return nil, err
	}
	body, err = compressBody(c.cfg.Compression, body)
	if err != nil {
		return nil, err
	}

	hdr := rpcHeader(call.requestID, call.auth, c.cfg.Compression)
	resp, err := c.http.Post(ctx, u, hdr, body)
	if err != nil {
		return nil, err
	}
	defer sneakyBodyClose(resp.Body)
	if err := checkStatusCodeOK(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var respData wireQueryResponse
	if err := json.Unmarshal(data, &respData); err != nil {
		return nil, err
	}
	return decodeQueryResponse(&respData, call.requestID)
}

func decodeQueryResponse(resp *wireQueryResponse, requestID string) (*SQLQueryResponse, error) {
	out := &SQLQueryResponse{
		AffectedRows: resp.AffectedRows,
		RequestID:    requestID,
	}

	switch resp.Format {
	case ResultFormatJSON, "":
		schema := make(Schema, 0, len(resp.Schema))
		for _, cs := range resp.Schema {
			schema = append(schema, ColumnSchema{Name: cs.Name, Type: cs.Type})
		}
		rows, err := decodeJSONRows(schema, resp.Rows)
		if err != nil {
			return nil, err
		}
		out.schema = schema
		out.rows = rows
	case ResultFormatArrow:
		var encoded string
		if err := json.Unmarshal(resp.Rows, &encoded); err != nil {
			return nil, err
		}
		batches, err := decodeArrowBatches([]byte(encoded))
		if err != nil {
			return nil, err
		}
		defer releaseArrowBatches(batches)
		schema, rows, err := arrowBatchesToRows(batches)
		if err != nil {
			return nil, err
		}
		out.schema = schema
		out.rows = rows
	default:
		return nil, fmt.Errorf("unexpected result format: %s", resp.Format)
	}
	return out, nil
}

// decodeJSONRows parses the JSON result format: rows of string-rendered
// cells, nil for NULL, typed by the schema.
func decodeJSONRows(schema Schema, raw json.RawMessage) ([][]Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var wireRows [][]*string
	if err := json.Unmarshal(raw, &wireRows); err != nil {
		return nil, err
	}

	var rows [][]Value
	for _, r := range wireRows {
		if len(r) != len(schema) {
			return nil, errors.New("schema length does not match record length")
		}
		row := make([]Value, len(r))
		for i, cell := range r {
			if cell == nil {
				row[i] = NullValue()
				continue
			}
			v, err := decodeStringValue(schema[i].Type, *cell)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
