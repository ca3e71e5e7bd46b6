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

// Package fkresolver computes, for a table and a set of column expressions
// (some of which may be dot-paths through foreign keys), the forest of
// joins the statement builders need to emit. It is the sole authority for
// rewriting dot-paths; builders never invent joins on their own.
package fkresolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/schema"
)

// Reference is one node of the resolved join plan. It is acyclic by
// construction: Resolve refuses to recurse into a (table, column) pair
// already seen along the current path.
type Reference struct {
	OriginalPaths       []string
	ReferringTable      string
	ReferringColumn     string
	ReferringColumnType dbtype.ColumnType
	ReferredTable       string
	ReferredColumn      string
	ReferredColumnType  dbtype.ColumnType
	ReferredStats       schema.TableStats
	Nested              []Reference
}

type group struct {
	parentColumn  string
	childPaths    []string // remainder after stripping the parent segment
	originalPaths []string
}

// Resolve builds the forest of foreign-key references induced by columns
// against table. Only dot-containing entries participate; plain column
// names are ignored here (the statement builders pass them through
// untouched).
func Resolve(ctx context.Context, cache schema.Cache, table string, columns []string) ([]Reference, error) {
	return resolve(ctx, cache, table, columns, map[string]bool{})
}

func resolve(ctx context.Context, cache schema.Cache, table string, columns []string, seen map[string]bool) ([]Reference, error) {
	dotPaths := dotContaining(columns)
	if len(dotPaths) == 0 {
		return nil, nil
	}

	groups := groupByFirstSegment(dotPaths)

	stats, err := cache.Fetch(ctx, table)
	if err != nil {
		return nil, err
	}

	var refs []Reference
	for _, fkCol := range stats.ForeignKeyColumns() {
		g, ok := groups[fkCol.Name]
		if !ok {
			continue
		}

		key := fmt.Sprintf("%s.%s", table, fkCol.Name)
		if seen[key] {
			// cyclic schema: stop recursing but still emit the leaf reference.
			refs = append(refs, buildLeaf(fkCol, g))
			continue
		}

		referredTable := *fkCol.ReferredTable
		nextSeen := make(map[string]bool, len(seen)+1)
		for k := range seen {
			nextSeen[k] = true
		}
		nextSeen[key] = true

		allNested := true
		for _, cp := range g.childPaths {
			if !strings.Contains(cp, ".") {
				allNested = false
				break
			}
		}

		var nested []Reference
		var referredStats schema.TableStats
		if referredStats, err = cache.Fetch(ctx, referredTable); err != nil {
			return nil, err
		}
		if allNested {
			nested, err = resolve(ctx, cache, referredTable, g.childPaths, nextSeen)
			if err != nil {
				return nil, err
			}
		}

		ref := buildLeaf(fkCol, g)
		ref.ReferredStats = referredStats
		ref.Nested = nested
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ReferringColumn < refs[j].ReferringColumn })
	return refs, nil
}

func buildLeaf(fkCol schema.TableColumnStat, g group) Reference {
	var referredType dbtype.ColumnType
	if fkCol.ReferredColumnType != nil {
		referredType = *fkCol.ReferredColumnType
	}
	return Reference{
		OriginalPaths:       g.originalPaths,
		ReferringColumn:     fkCol.Name,
		ReferringColumnType: fkCol.ColumnType,
		ReferredTable:       derefOr(fkCol.ReferredTable, ""),
		ReferredColumn:      derefOr(fkCol.ReferredColumn, ""),
		ReferredColumnType:  referredType,
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// dotContaining keeps only dot-containing inputs, sorted and deduplicated,
// per the resolver's step 1.
func dotContaining(columns []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range columns {
		if strings.Contains(c, ".") && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// groupByFirstSegment groups dot-paths by their first segment, producing
// one group per parent column with its child paths (the remainder after
// the first ".") and the original full paths that contributed to it.
func groupByFirstSegment(dotPaths []string) map[string]group {
	out := map[string]group{}
	for _, path := range dotPaths {
		idx := strings.Index(path, ".")
		parent := path[:idx]
		rest := path[idx+1:]

		g := out[parent]
		g.parentColumn = parent
		g.childPaths = append(g.childPaths, rest)
		g.originalPaths = append(g.originalPaths, path)
		out[parent] = g
	}
	return out
}

// Find walks the forest to translate a user dot-path into the actual
// (table, column) the emitted SQL must reference, returning the
// terminating reference node and the final column name.
func Find(refs []Reference, table, columnPath string) (node Reference, terminalColumn string, ok bool) {
	if !strings.Contains(columnPath, ".") {
		return Reference{}, columnPath, false
	}
	idx := strings.Index(columnPath, ".")
	parent, rest := columnPath[:idx], columnPath[idx+1:]

	for _, ref := range refs {
		if ref.ReferringColumn != parent {
			continue
		}
		if !strings.Contains(rest, ".") {
			return ref, rest, true
		}
		nestedNode, terminal, found := Find(ref.Nested, ref.ReferredTable, rest)
		if found {
			return nestedNode, terminal, true
		}
		// one level of traversal resolved even though recursion stopped
		// (e.g. at a cycle guard) — surface the immediate referred table/column.
		innerIdx := strings.Index(rest, ".")
		return ref, rest[innerIdx+1:], true
	}
	return Reference{}, "", false
}

// RenderFunc renders one join reference into SQL text (e.g. an INNER JOIN
// clause); Join calls it once for every reference in the forest, nested
// ones included.
type RenderFunc func(ref Reference) string

// Join flattens the forest into joinable strings using render, joined by
// separator — used to build INNER JOIN lists, USING lists, or ON clauses.
func Join(refs []Reference, render RenderFunc, separator string) string {
	parts := make([]string, 0, len(refs))
	var walk func([]Reference)
	walk = func(rs []Reference) {
		for _, r := range rs {
			parts = append(parts, render(r))
			walk(r.Nested)
		}
	}
	walk(refs)
	return strings.Join(parts, separator)
}
