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
	"io"
	"net/url"
)

// writeAPI defines the interface under /v1/write.
type writeAPI interface {
	submitWrite(ctx context.Context, call *writeCall) (*wireWriteResponse, error)
}

var _ writeAPI = (*Client)(nil)

type wirePoint struct {
	Metric    string           `json:"metric"`
	Timestamp int64            `json:"timestamp"`
	Tags      map[string]Value `json:"tags,omitempty"`
	Fields    map[string]Value `json:"fields"`
}

type wireWriteRequest struct {
	Database string      `json:"database,omitempty"`
	Points   []wirePoint `json:"points"`
}

type wireWriteResponse struct {
	Success uint32 `json:"success"`
	Failed  uint32 `json:"failed"`
}

// writeCall is one resolved write RPC: a point batch bound to an endpoint.
type writeCall struct {
	endpoint  *url.URL
	database  string
	auth      *Auth
	requestID string
	points    []Point
}

func (c *Client) submitWrite(ctx context.Context, call *writeCall) (*wireWriteResponse, error) {
	u := call.endpoint.JoinPath("/v1/write")

	wirePoints := make([]wirePoint, 0, len(call.points))
	for _, p := range call.points {
		wirePoints = append(wirePoints, wirePoint{
			Metric:    p.Metric(),
			Timestamp: p.Timestamp(),
			Tags:      p.Tags(),
			Fields:    p.Fields(),
		})
	}

	body, err := json.Marshal(&wireWriteRequest{
		Database: call.database,
		Points:   wirePoints,
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
	var respData wireWriteResponse
	err = json.Unmarshal(data, &respData)
	return &respData, err
}
