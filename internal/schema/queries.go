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

package schema

// listUserTablesSQL enumerates every base table pgrest should expose,
// excluding the system schemas, via information_schema — used both for
// the GET /table endpoint and for cached-policy bootstrap.
const listUserTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_name;
`

// columnStatsSQLTemplate is Appendix SQL1 (column stats): columns plus the
// foreign key, if any, each column participates in as the referring side.
// The %s slot takes an extra WHERE condition; left empty, the query returns
// every column of every user table in one round trip, keyed by table_name
// in the result set (used by the cached policy's bootstrap).
const columnStatsSQLTemplate = `
SELECT
	c.table_name,
	c.column_name,
	c.udt_name,
	c.column_default,
	(c.is_nullable = 'YES') AS is_nullable,
	c.character_maximum_length,
	c.character_octet_length,
	fk.foreign_table_name,
	fk.foreign_column_name
FROM information_schema.columns c
LEFT JOIN (
	SELECT
		kcu.table_name,
		kcu.column_name,
		ccu.table_name AS foreign_table_name,
		ccu.column_name AS foreign_column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage ccu
		ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
	WHERE tc.constraint_type = 'FOREIGN KEY'
) fk ON fk.table_name = c.table_name AND fk.column_name = c.column_name
WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
%s
ORDER BY c.table_name, c.ordinal_position;
`

// constraintsSQLTemplate is Appendix SQL2 (constraints): pg_constraint
// joined against pg_class (owning table) and pg_attribute (column names),
// per the glossary's "pg_constraint + pg_class + pg_attribute" template.
const constraintsSQLTemplate = `
SELECT
	cls.relname AS table_name,
	con.conname AS name,
	con.contype::text AS kind,
	pg_get_constraintdef(con.oid) AS definition,
	(SELECT array_agg(att.attname ORDER BY u.ord)
		FROM unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord)
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = u.attnum) AS columns,
	NULLIF(con.confrelid, 0)::regclass::text AS referred_table,
	(SELECT array_agg(att.attname ORDER BY u.ord)
		FROM unnest(con.confkey) WITH ORDINALITY AS u(attnum, ord)
		JOIN pg_attribute att ON att.attrelid = con.confrelid AND att.attnum = u.attnum) AS referred_columns
FROM pg_constraint con
JOIN pg_class cls ON cls.oid = con.conrelid
JOIN pg_namespace ns ON ns.oid = cls.relnamespace
WHERE ns.nspname NOT IN ('pg_catalog', 'information_schema')
%s;
`

// indexesSQLTemplate is Appendix SQL3 (indexes): pg_class joined against
// pg_index, per the glossary's "pg_class + pg_index" template.
const indexesSQLTemplate = `
SELECT
	t.relname AS table_name,
	ic.relname AS name,
	idx.indisunique AS is_unique,
	idx.indisprimary AS is_primary,
	am.amname AS access_method,
	(SELECT array_agg(att.attname ORDER BY u.ord)
		FROM unnest(idx.indkey::int[]) WITH ORDINALITY AS u(attnum, ord)
		JOIN pg_attribute att ON att.attrelid = idx.indrelid AND att.attnum = u.attnum
		WHERE u.attnum <> 0) AS columns
FROM pg_index idx
JOIN pg_class t ON t.oid = idx.indrelid
JOIN pg_class ic ON ic.oid = idx.indexrelid
JOIN pg_am am ON am.oid = ic.relam
JOIN pg_namespace ns ON ns.oid = t.relnamespace
WHERE ns.nspname NOT IN ('pg_catalog', 'information_schema')
%s;
`
