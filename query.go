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

// SQLQueryRequest is an immutable SQL statement plus the tables it touches.
//
// The table scope is explicit because in direct mode the client routes the
// statement by its first table.
type SQLQueryRequest struct {
	tables []string
	sql    string

	// Format is the wire encoding the server should use for result rows.
	// Empty means ResultFormatJSON.
	Format ResultFormat
}

func NewSQLQueryRequest(tables []string, sql string) *SQLQueryRequest {
	ts := make([]string, len(tables))
	copy(ts, tables)
	return &SQLQueryRequest{tables: ts, sql: sql}
}

func (r *SQLQueryRequest) Tables() []string { return r.tables }

func (r *SQLQueryRequest) SQL() string { return r.sql }

func (r *SQLQueryRequest) validate() error {
	if r.sql == "" {
		return &ValidationError{Field: "sql", Reason: "query text is empty"}
	}
	if len(r.tables) == 0 {
		return &ValidationError{Field: "tables", Reason: "table scope is empty"}
	}
	for _, t := range r.tables {
		if t == "" {
			return &ValidationError{Field: "tables", Reason: "table scope contains an empty name"}
		}
	}
	return nil
}
