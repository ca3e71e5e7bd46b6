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

package httpapi

import (
	"encoding/json"
	"io"

	"github.com/kaibyao/pgrest/internal/apierr"
	"github.com/kaibyao/pgrest/internal/sqlbuild"
)

// decodeRowObject reads one JSON object off dec as an ordered slice of
// RowCell, preserving the key order the request body used. The column
// universe's "insertion order of first appearance" contract depends on
// this; map[string]any would lose it, since encoding/json always replays
// map keys back out in sorted order.
func decodeRowObject(dec *json.Decoder) ([]sqlbuild.RowCell, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, apierr.IncorrectRequestBody(err.Error())
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, apierr.IncorrectRequestBody("expected a JSON object")
	}

	var cells []sqlbuild.RowCell
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, apierr.IncorrectRequestBody(err.Error())
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, apierr.IncorrectRequestBody("expected a string object key")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, apierr.IncorrectRequestBody(err.Error())
		}
		cells = append(cells, sqlbuild.RowCell{Column: key, Value: value})
	}
	if _, err := dec.Token(); err != nil { // consume the closing '}'
		return nil, apierr.IncorrectRequestBody(err.Error())
	}
	return cells, nil
}

// decodeRowArray reads a JSON array of objects (the POST /{table} body
// shape) into ordered rows.
func decodeRowArray(r io.Reader) ([][]sqlbuild.RowCell, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, apierr.IncorrectRequestBody(err.Error())
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, apierr.IncorrectRequestBody("expected a JSON array of objects")
	}

	var rows [][]sqlbuild.RowCell
	for dec.More() {
		row, err := decodeRowObject(dec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil { // consume the closing ']'
		return nil, apierr.IncorrectRequestBody(err.Error())
	}
	return rows, nil
}

// decodeSingleRow reads one JSON object body (the PUT /{table} column_values shape).
func decodeSingleRow(r io.Reader) ([]sqlbuild.RowCell, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return decodeRowObject(dec)
}
