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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoArrowBatch(t *testing.T) (*arrow.Schema, arrow.Record) {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
		{Name: "t", Type: &arrow.TimestampType{Unit: arrow.Millisecond}},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean},
	}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	b.Field(0).(*array.StringBuilder).Append("test_tag1")
	b.Field(1).(*array.Float64Builder).Append(0.4242)
	b.Field(2).(*array.TimestampBuilder).Append(arrow.Timestamp(1700000000000))
	b.Field(3).(*array.BooleanBuilder).Append(true)

	b.Field(0).(*array.StringBuilder).AppendNull()
	b.Field(1).(*array.Float64Builder).Append(1.5)
	b.Field(2).(*array.TimestampBuilder).Append(arrow.Timestamp(1700000000001))
	b.Field(3).(*array.BooleanBuilder).Append(false)

	return schema, b.NewRecord()
}

func TestArrowBatchesToRows(t *testing.T) {
	schema, rec := demoArrowBatch(t)
	defer rec.Release()

	payload, err := encodeArrowBatches(schema, []arrow.Record{rec})
	require.NoError(t, err)

	batches, err := decodeArrowBatches(payload)
	require.NoError(t, err)
	defer releaseArrowBatches(batches)

	rsSchema, rows, err := arrowBatchesToRows(batches)
	require.NoError(t, err)

	require.Equal(t, Schema{
		{Name: "name", Type: DataTypeString},
		{Name: "value", Type: DataTypeDouble},
		{Name: "t", Type: DataTypeTimestamp},
		{Name: "ok", Type: DataTypeBoolean},
	}, rsSchema)
	require.Len(t, rows, 2)

	name, err := rows[0][0].Str()
	require.NoError(t, err)
	assert.Equal(t, "test_tag1", name)

	value, err := rows[0][1].Double()
	require.NoError(t, err)
	assert.InDelta(t, 0.4242, value, 1e-9)

	ts, err := rows[0][2].Timestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)

	ok, err := rows[0][3].Bool()
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, rows[1][0].IsNull())
}

func TestEncodeArrowBatchesEmpty(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int64}}, nil)
	_, err := encodeArrowBatches(schema, nil)
	assert.Error(t, err)
}

func TestQueryArrowResultFormat(t *testing.T) {
	schema, rec := demoArrowBatch(t)
	defer rec.Release()
	payload, err := encodeArrowBatches(schema, []arrow.Record{rec})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/sql", r.URL.Path)
		var req wireQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, ResultFormatArrow, req.Format)

		raw, err := json.Marshal(string(payload))
		require.NoError(t, err)
		writeJSON(t, w, wireQueryResponse{
			Format: ResultFormatArrow,
			Rows:   raw,
		})
	}))
	t.Cleanup(srv.Close)

	client := newTestClient(t, &Config{Endpoint: srv.URL})

	req := NewSQLQueryRequest([]string{"demo"}, "SELECT * FROM demo")
	req.Format = ResultFormatArrow
	resp, err := client.SQLQuery(context.Background(), nil, req)
	require.NoError(t, err)

	require.Equal(t, 2, resp.NumRows())
	row, err := resp.RowByIdx(0)
	require.NoError(t, err)
	col, ok := row.ColumnByName("value")
	require.True(t, ok)
	v, err := col.Value.Double()
	require.NoError(t, err)
	assert.InDelta(t, 0.4242, v, 1e-9)
}
