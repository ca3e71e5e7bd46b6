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

// Package dbtype is the Type Marshaller: the bidirectional mapping between
// JSON values and the closed set of PostgreSQL column types pgrest
// understands, and the sole shape (TypedColumnValue) the executor hands to
// the database driver.
package dbtype

import "fmt"

// ColumnType is an interned tag from the closed set of column types pgrest
// marshals. It is the axis of variation for every JSON<->SQL conversion.
type ColumnType string

const (
	BigInt      ColumnType = "BigInt"
	Int         ColumnType = "Int"
	SmallInt    ColumnType = "SmallInt"
	Oid         ColumnType = "Oid"
	Real        ColumnType = "Real"
	Float8      ColumnType = "Float8"
	Decimal     ColumnType = "Decimal"
	Bool        ColumnType = "Bool"
	ByteA       ColumnType = "ByteA"
	Char        ColumnType = "Char"
	VarChar     ColumnType = "VarChar"
	Text        ColumnType = "Text"
	Citext      ColumnType = "Citext"
	Name        ColumnType = "Name"
	Json        ColumnType = "Json"
	JsonB       ColumnType = "JsonB"
	HStore      ColumnType = "HStore"
	Uuid        ColumnType = "Uuid"
	MacAddr     ColumnType = "MacAddr"
	Date        ColumnType = "Date"
	Time        ColumnType = "Time"
	Timestamp   ColumnType = "Timestamp"
	TimestampTz ColumnType = "TimestampTz"
)

// pgTypeNames maps the Postgres type name (as reported by
// information_schema.columns.udt_name / format_type) to the tag above.
// The schema layer records a column with an unrecognized name as Text,
// and row cells of an unknown type surface as diagnostic Text (never
// silent data loss) per the marshaller's row-cell contract.
var pgTypeNames = map[string]ColumnType{
	"int8":        BigInt,
	"bigint":      BigInt,
	"int4":        Int,
	"integer":     Int,
	"int2":        SmallInt,
	"smallint":    SmallInt,
	"oid":         Oid,
	"float4":      Real,
	"real":        Real,
	"float8":      Float8,
	"double precision": Float8,
	"numeric":     Decimal,
	"decimal":     Decimal,
	"bool":        Bool,
	"boolean":     Bool,
	"bytea":       ByteA,
	"bpchar":      Char,
	"character":   Char,
	"varchar":     VarChar,
	"character varying": VarChar,
	"text":        Text,
	"citext":      Citext,
	"name":        Name,
	"json":        Json,
	"jsonb":       JsonB,
	"hstore":      HStore,
	"uuid":        Uuid,
	"macaddr":     MacAddr,
	"date":        Date,
	"time":        Time,
	"time without time zone": Time,
	"timestamp":   Timestamp,
	"timestamp without time zone": Timestamp,
	"timestamptz": TimestampTz,
	"timestamp with time zone": TimestampTz,
}

// FromPostgresTypeName resolves a Postgres type name to a ColumnType tag.
// ok is false when the type is outside the closed set the marshaller covers.
func FromPostgresTypeName(name string) (ColumnType, bool) {
	tag, ok := pgTypeNames[name]
	return tag, ok
}

// ValueState discriminates the three-way state every TypedColumnValue
// carries: a present, non-null value; a nullable slot that may or may not
// hold a value; or a request to let the database substitute its column
// default (used by the INSERT builder, never bound as a parameter).
type ValueState int

const (
	NotNullable ValueState = iota
	Nullable
	UseDefault
)

func (s ValueState) String() string {
	switch s {
	case NotNullable:
		return "NotNullable"
	case Nullable:
		return "Nullable"
	case UseDefault:
		return "Default"
	default:
		return fmt.Sprintf("ValueState(%d)", int(s))
	}
}

// TypedColumnValue is the single shape the executor hands to the database
// bind layer. Value is nil when State is UseDefault, or when State is
// Nullable and no value was supplied (JSON null).
type TypedColumnValue struct {
	ColumnType ColumnType
	State      ValueState
	Value      any
}

// Default constructs the UseDefault variant for a column type; the
// statement builder never emits it as a bind parameter, only as the
// literal SQL keyword DEFAULT.
func Default(colType ColumnType) TypedColumnValue {
	return TypedColumnValue{ColumnType: colType, State: UseDefault}
}

// Null constructs the Nullable(None) variant.
func Null(colType ColumnType) TypedColumnValue {
	return TypedColumnValue{ColumnType: colType, State: Nullable}
}

// BindArg returns the value pgx should receive as a query parameter. A
// UseDefault value must never reach here; sqlbuild substitutes the literal
// keyword DEFAULT into the statement text instead of binding it.
func (v TypedColumnValue) BindArg() (any, error) {
	if v.State == UseDefault {
		return nil, fmt.Errorf("dbtype: DEFAULT is not a bindable value; it must be emitted as literal SQL")
	}
	return v.Value, nil
}
