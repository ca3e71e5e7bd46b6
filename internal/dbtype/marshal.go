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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaibyao/pgrest/internal/apierr"
)

// FromJSON converts a decoded JSON value (as produced by a json.Decoder
// configured with UseNumber, so JSON numbers arrive as json.Number) into
// the TypedColumnValue appropriate for colType. A JSON null always yields
// Nullable(None) regardless of colType.
func FromJSON(value any, colType ColumnType) (TypedColumnValue, error) {
	if value == nil {
		return Null(colType), nil
	}

	switch colType {
	case BigInt, Int, SmallInt, Oid:
		return fromJSONInteger(value, colType)
	case Real, Float8:
		return fromJSONFloat(value, colType)
	case Decimal:
		return fromJSONDecimal(value)
	case Bool:
		b, ok := value.(bool)
		if !ok {
			return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON boolean")
		}
		return TypedColumnValue{ColumnType: colType, State: NotNullable, Value: b}, nil
	case ByteA:
		return fromJSONByteA(value)
	case Char, VarChar, Text, Citext, Name:
		s, ok := value.(string)
		if !ok {
			return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON string")
		}
		return TypedColumnValue{ColumnType: colType, State: NotNullable, Value: s}, nil
	case Json, JsonB:
		return TypedColumnValue{ColumnType: colType, State: NotNullable, Value: value}, nil
	case HStore:
		return fromJSONHStore(value)
	case Uuid:
		return fromJSONUUID(value)
	case MacAddr:
		return fromJSONMacAddr(value)
	case Date, Time, Timestamp, TimestampTz:
		return fromJSONTemporal(value, colType)
	default:
		return TypedColumnValue{}, apierr.UnsupportedDataType(string(colType))
	}
}

func fromJSONInteger(value any, colType ColumnType) (TypedColumnValue, error) {
	num, ok := value.(json.Number)
	if !ok {
		switch v := value.(type) {
		case float64:
			num = json.Number(strconv.FormatFloat(v, 'f', -1, 64))
		case int32:
			num = json.Number(strconv.FormatInt(int64(v), 10))
		case int64:
			num = json.Number(strconv.FormatInt(v, 10))
		case int:
			num = json.Number(strconv.Itoa(v))
		default:
			return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON number")
		}
	}
	i, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(num.String(), err.Error())
	}
	return TypedColumnValue{ColumnType: colType, State: NotNullable, Value: i}, nil
}

func fromJSONFloat(value any, colType ColumnType) (TypedColumnValue, error) {
	num, ok := value.(json.Number)
	if !ok {
		switch v := value.(type) {
		case float64:
			return TypedColumnValue{ColumnType: colType, State: NotNullable, Value: v}, nil
		case string:
			num = json.Number(v)
		default:
			return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON number")
		}
	}
	f, err := strconv.ParseFloat(num.String(), 64)
	if err != nil {
		return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(num.String(), err.Error())
	}
	return TypedColumnValue{ColumnType: colType, State: NotNullable, Value: f}, nil
}

// fromJSONDecimal accepts either a JSON number or a JSON string (the latter
// preserves full precision across the wire); the value is stored as that
// decimal text, unchanged, once it parses as a number.
func fromJSONDecimal(value any) (TypedColumnValue, error) {
	var raw string
	switch v := value.(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = v
	case float64:
		raw = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON number or string")
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return TypedColumnValue{}, apierr.DecimalParseError(raw, err)
	}
	return TypedColumnValue{ColumnType: Decimal, State: NotNullable, Value: raw}, nil
}

// fromJSONByteA accepts a JSON array of byte-sized numbers.
func fromJSONByteA(value any) (TypedColumnValue, error) {
	arr, ok := value.([]any)
	if !ok {
		return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON array of bytes")
	}
	out := make([]byte, len(arr))
	for i, el := range arr {
		num, ok := el.(json.Number)
		if !ok {
			return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(el), "expected byte array elements to be JSON numbers")
		}
		n, err := strconv.ParseUint(num.String(), 10, 8)
		if err != nil {
			return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(num.String(), err.Error())
		}
		out[i] = byte(n)
	}
	return TypedColumnValue{ColumnType: ByteA, State: NotNullable, Value: out}, nil
}

func fromJSONHStore(value any) (TypedColumnValue, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON object")
	}
	m := make(map[string]*string, len(obj))
	for k, v := range obj {
		if v == nil {
			m[k] = nil
			continue
		}
		s, ok := v.(string)
		if !ok {
			return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(v), "hstore values must be strings or null")
		}
		sCopy := s
		m[k] = &sCopy
	}
	return TypedColumnValue{ColumnType: HStore, State: NotNullable, Value: m}, nil
}

func fromJSONUUID(value any) (TypedColumnValue, error) {
	s, ok := value.(string)
	if !ok {
		return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON string")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return TypedColumnValue{}, apierr.UUIDParseError(s, err)
	}
	return TypedColumnValue{ColumnType: Uuid, State: NotNullable, Value: u}, nil
}

func fromJSONMacAddr(value any) (TypedColumnValue, error) {
	s, ok := value.(string)
	if !ok {
		return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON string")
	}
	addr, err := net.ParseMAC(s)
	if err != nil {
		return TypedColumnValue{}, apierr.MacAddrParseError(s, err)
	}
	return TypedColumnValue{ColumnType: MacAddr, State: NotNullable, Value: addr}, nil
}

const (
	dateLayout        = "2006-01-02"
	timeLayout        = "15:04:05"
	timestampLayout   = "2006-01-02T15:04:05"
	timestampTzLayout = time.RFC3339
)

func fromJSONTemporal(value any, colType ColumnType) (TypedColumnValue, error) {
	s, ok := value.(string)
	if !ok {
		return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(fmt.Sprint(value), "expected a JSON string")
	}
	layout := map[ColumnType]string{
		Date:        dateLayout,
		Time:        timeLayout,
		Timestamp:   timestampLayout,
		TimestampTz: timestampTzLayout,
	}[colType]

	t, err := time.Parse(layout, s)
	if err != nil {
		// fall back to RFC3339 for timestamp/timestamptz given with an offset
		if colType == Timestamp || colType == TimestampTz {
			if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
				t, err = t2, nil
			}
		}
	}
	if err != nil {
		return TypedColumnValue{}, apierr.InvalidJSONTypeConversion(s, err.Error())
	}
	return TypedColumnValue{ColumnType: colType, State: NotNullable, Value: t}, nil
}

// CellToJSON is the row-cell to JSON inverse mapping: it takes the native
// Go value pgx decoded for a row cell (via pgx.Rows.Values) together with
// the column's type tag and produces a JSON-serializable value. Unknown
// column types surface as a diagnostic Text string rather than silently
// dropping data.
func CellToJSON(colType ColumnType, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch colType {
	case BigInt, Int, SmallInt, Oid, Real, Float8, Bool, Json, JsonB:
		return raw, nil
	case Decimal:
		return fmt.Sprint(raw), nil
	case ByteA:
		switch v := raw.(type) {
		case []byte:
			return base64.StdEncoding.EncodeToString(v), nil
		default:
			return fmt.Sprint(raw), nil
		}
	case Char, VarChar, Text, Citext, Name:
		return fmt.Sprint(raw), nil
	case HStore:
		if m, ok := raw.(map[string]*string); ok {
			return m, nil
		}
		return fmt.Sprint(raw), nil
	case Uuid:
		switch v := raw.(type) {
		case uuid.UUID:
			return v.String(), nil
		case [16]byte:
			return uuid.UUID(v).String(), nil
		default:
			return fmt.Sprint(raw), nil
		}
	case MacAddr:
		if mac, ok := raw.(net.HardwareAddr); ok {
			return mac.String(), nil
		}
		return fmt.Sprint(raw), nil
	case Date:
		if t, ok := raw.(time.Time); ok {
			return t.Format(dateLayout), nil
		}
		return fmt.Sprint(raw), nil
	case Time:
		if t, ok := raw.(time.Time); ok {
			return t.Format(timeLayout), nil
		}
		return fmt.Sprint(raw), nil
	case Timestamp:
		if t, ok := raw.(time.Time); ok {
			return t.Format(timestampLayout), nil
		}
		return fmt.Sprint(raw), nil
	case TimestampTz:
		if t, ok := raw.(time.Time); ok {
			return t.Format(timestampTzLayout), nil
		}
		return fmt.Sprint(raw), nil
	default:
		return fmt.Sprintf("<unsupported column type %q: %v>", colType, raw), nil
	}
}

// EncodeHStoreText renders a decoded hstore map back into Postgres's
// `"k"=>"v"` text format.
func EncodeHStoreText(m map[string]*string) string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		if v == nil {
			parts = append(parts, fmt.Sprintf("%q=>NULL", k))
			continue
		}
		parts = append(parts, fmt.Sprintf("%q=>%q", k, *v))
	}
	return strings.Join(parts, ",")
}
