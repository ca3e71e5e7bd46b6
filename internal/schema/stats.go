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

// Package schema is the Stats Cache: per-table column metadata,
// constraints, indexes and foreign-key graph, with an uncached direct-query
// policy and an optional process-wide cached policy with timed refresh.
package schema

import "github.com/kaibyao/pgrest/internal/dbtype"

// ConstraintKind is the decoded, human-readable form of pg_constraint's
// one-character contype column.
type ConstraintKind string

const (
	ConstraintCheck      ConstraintKind = "check"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintPrimaryKey ConstraintKind = "primary_key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintTrigger    ConstraintKind = "trigger"
	ConstraintExclusion  ConstraintKind = "exclusion"
)

// constraintKindFromChar decodes pg_constraint.contype.
func constraintKindFromChar(c string) ConstraintKind {
	switch c {
	case "c":
		return ConstraintCheck
	case "f":
		return ConstraintForeignKey
	case "p":
		return ConstraintPrimaryKey
	case "u":
		return ConstraintUnique
	case "t":
		return ConstraintTrigger
	case "x":
		return ConstraintExclusion
	default:
		return ConstraintKind(c)
	}
}

// TableColumnStat describes one column of one table.
type TableColumnStat struct {
	Name               string             `json:"name"`
	ColumnType         dbtype.ColumnType  `json:"column_type"`
	Default            *string            `json:"default,omitempty"`
	Nullable           bool               `json:"nullable"`
	IsForeignKey       bool               `json:"is_foreign_key"`
	ReferredTable      *string            `json:"referred_table,omitempty"`
	ReferredColumn     *string            `json:"referred_column,omitempty"`
	ReferredColumnType *dbtype.ColumnType `json:"referred_column_type,omitempty"`
	CharMaxLength      *int               `json:"char_max_length,omitempty"`
	CharOctetLength    *int               `json:"char_octet_length,omitempty"`
}

// Constraint is one row of pg_constraint joined against the owning table.
type Constraint struct {
	Name            string         `json:"name"`
	Table           string         `json:"table"`
	Columns         []string       `json:"columns"`
	Kind            ConstraintKind `json:"kind"`
	Definition      string         `json:"definition"`
	ReferredTable   *string        `json:"referred_table,omitempty"`
	ReferredColumns []string       `json:"referred_columns,omitempty"`
}

// TableIndex is one row of pg_index joined against the owning table.
type TableIndex struct {
	Name         string   `json:"name"`
	Columns      []string `json:"columns"`
	AccessMethod string   `json:"access_method"`
	IsExclusion  bool     `json:"is_exclusion"`
	IsPrimary    bool     `json:"is_primary"`
	IsUnique     bool     `json:"is_unique"`
}

// ReferencedBy names another table whose foreign key targets this one.
type ReferencedBy struct {
	Table          string `json:"table"`
	Column         string `json:"column"`
	ReferredColumn string `json:"referred_column"`
}

// TableStats aggregates everything pgrest knows about one table.
type TableStats struct {
	Table        string            `json:"table"`
	Columns      []TableColumnStat `json:"columns"`
	Constraints  []Constraint      `json:"constraints"`
	Indexes      []TableIndex      `json:"indexes"`
	PrimaryKey   []string          `json:"primary_key"`
	ReferencedBy []ReferencedBy    `json:"referenced_by"`
}

// Column looks up a column stat by name.
func (s TableStats) Column(name string) (TableColumnStat, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return TableColumnStat{}, false
}

// ForeignKeyColumns returns the subset of columns that carry a foreign key,
// in column order — the set the Foreign-Key Resolver filters against.
func (s TableStats) ForeignKeyColumns() []TableColumnStat {
	out := make([]TableColumnStat, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.IsForeignKey {
			out = append(out, c)
		}
	}
	return out
}
