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

import "iter"

// Schema describes the columns of a query result.
type Schema []ColumnSchema

// ColumnSchema describes a single column: its name and declared type.
type ColumnSchema struct {
	Name string
	Type DataType
}

// ColumnIdx returns the index of the named column, or -1 if absent.
func (s Schema) ColumnIdx(name string) int {
	for i, cs := range s {
		if cs.Name == name {
			return i
		}
	}
	return -1
}

// Column is a single cell of a query result: the column name plus its typed
// value.
type Column struct {
	Name  string
	Value Value
}

func (c Column) DataType() DataType { return c.Value.DataType() }

// Row is one row of a query result. Rows share the response's schema; a
// Row is cheap to copy.
type Row struct {
	schema Schema
	values []Value
}

func (r Row) NumColumns() int { return len(r.values) }

// Column returns the i-th column. It fails with an IndexError if i is
// outside [0, NumColumns()).
func (r Row) Column(i int) (Column, error) {
	if i < 0 || i >= len(r.values) {
		return Column{}, &IndexError{Index: i, Len: len(r.values)}
	}
	return Column{Name: r.schema[i].Name, Value: r.values[i]}, nil
}

// ColumnByName returns the named column, reporting whether it exists.
func (r Row) ColumnByName(name string) (Column, bool) {
	i := r.schema.ColumnIdx(name)
	if i < 0 {
		return Column{}, false
	}
	return Column{Name: name, Value: r.values[i]}, true
}

// IterColumns iterates the row's columns in schema order.
func (r Row) IterColumns() iter.Seq[Column] {
	return func(yield func(Column) bool) {
		for i := range r.values {
			if !yield(Column{Name: r.schema[i].Name, Value: r.values[i]}) {
				return
			}
		}
	}
}

// SQLQueryResponse is the decoded result of a query. The row count and each
// row's column count are fixed at construction and never change.
//
// Rows preserve the server-returned order and are accessible both by index
// and by iteration. Iteration is single-pass per IterRows call; call
// IterRows again (or re-issue the query) to walk the rows another time.
type SQLQueryResponse struct {
	// AffectedRows is the server-reported number of rows the statement
	// affected. It is meaningful for DDL/DML statements, zero for reads.
	AffectedRows uint32
	// RequestID identifies the RPC that produced this response.
	RequestID string

	schema Schema
	rows   [][]Value
}

func (r *SQLQueryResponse) Schema() Schema { return r.schema }

func (r *SQLQueryResponse) NumRows() int { return len(r.rows) }

// RowByIdx returns the i-th row. It fails with an IndexError if i is
// outside [0, NumRows()).
func (r *SQLQueryResponse) RowByIdx(i int) (Row, error) {
	if i < 0 || i >= len(r.rows) {
		return Row{}, &IndexError{Index: i, Len: len(r.rows)}
	}
	return Row{schema: r.schema, values: r.rows[i]}, nil
}

// IterRows iterates the rows in server-returned order.
func (r *SQLQueryResponse) IterRows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for i := range r.rows {
			if !yield(Row{schema: r.schema, values: r.rows[i]}) {
				return
			}
		}
	}
}

// WriteFailure describes the write points that one endpoint rejected or
// failed to receive.
type WriteFailure struct {
	Endpoint string
	Points   int
	Err      error
}

// WriteResponse reports the outcome of a write as per-batch counts.
//
// A nil error from Write does not mean every point was applied: per-point
// and per-endpoint failures are reported here, not raised. Callers must
// inspect Failed even on a successful call.
type WriteResponse struct {
	Success uint32
	Failed  uint32
	// RequestID identifies the RPC that produced this response. In direct
	// mode, where the batch is split per route, it is the ID of the first
	// sub-batch.
	RequestID string
	// Failures carries per-endpoint diagnostics for failed sub-batches.
	Failures []WriteFailure
}

func (r *WriteResponse) merge(other *WriteResponse) {
	r.Success += other.Success
	r.Failed += other.Failed
	if r.RequestID == "" {
		r.RequestID = other.RequestID
	}
	r.Failures = append(r.Failures, other.Failures...)
}
