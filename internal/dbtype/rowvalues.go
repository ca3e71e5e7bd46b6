// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dbtype

import (
	"bytes"
	"encoding/json"
)

// NamedValue is one column/value pair of a result row, in select-list
// order. There is no third-party ordered-map type anywhere in the pack
// (encoding/json always sorts map[string]any keys alphabetically before
// marshalling), so RowValues below round-trips order itself with a
// hand-written MarshalJSON instead.
type NamedValue struct {
	Column string
	Value  any
}

// RowValues is one result row: an ordered map from column name to a
// JSON-serializable cell, preserving the statement's column order.
type RowValues []NamedValue

// MarshalJSON renders the row as a JSON object with its keys in column
// order, the same guarantee a real ordered map would give the caller.
func (r RowValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cell := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cell.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(cell.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// QueryResult is the Executor's return shape: either a materialized row
// set or an affected-row count, never both. It serializes untagged — the
// HTTP response body is either `[ {...}, ... ]` or `{"num_rows": N}` with
// no wrapper key distinguishing the two, matching the external contract.
type QueryResult struct {
	Rows    []RowValues
	NumRows int64
	// HasRows discriminates the zero value: a SELECT that matched no rows
	// still serializes as `[]`, not `{"num_rows":0}`.
	HasRows bool
}

// RowsResult constructs the row-set variant, even when rows is empty.
func RowsResult(rows []RowValues) QueryResult {
	if rows == nil {
		rows = []RowValues{}
	}
	return QueryResult{Rows: rows, HasRows: true}
}

// CountResult constructs the affected-row-count variant.
func CountResult(n int64) QueryResult {
	return QueryResult{NumRows: n}
}

func (q QueryResult) MarshalJSON() ([]byte, error) {
	if q.HasRows {
		return json.Marshal(q.Rows)
	}
	return json.Marshal(struct {
		NumRows int64 `json:"num_rows"`
	}{q.NumRows})
}
