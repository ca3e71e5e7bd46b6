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

package identifier

import "testing"

func TestValidateTableName(t *testing.T) {
	tcs := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"lowercase", "users", false},
		{"underscore prefix", "_users", false},
		{"snake case", "user_accounts", false},
		{"digits", "table_2", false},
		{"reserved word", "table", true},
		{"uppercase rejected", "Users", true},
		{"leading digit rejected", "2users", true},
		{"hyphen rejected", "user-accounts", true},
		{"empty rejected", "", true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTableName(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateTableName(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
		})
	}
}

func TestValidateColumnExpression(t *testing.T) {
	tcs := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain column", "id", false},
		{"dot path", "parent_id.company_id.name", false},
		{"aggregate call", "COUNT(id)", false},
		{"mid-token wildcard", "COUNT(*)", false},
		{"terminal dot rejected", "foo.", true},
		{"terminal wildcard alone rejected", "*", true},
		{"reserved word rejected", "table", true},
		{"space rejected", "id name", true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateColumnExpression(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateColumnExpression(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
		})
	}
}

func TestSplitAlias(t *testing.T) {
	tcs := []struct {
		name      string
		in        string
		wantOK    bool
		wantOrig  string
		wantAlias string
		wantErr   bool
	}{
		{"no alias", "id", false, "", "", false},
		{"explicit AS", "company_id.name AS company_name", true, "company_id.name", "company_name", false},
		{"case insensitive as", "id as pk", true, "id", "pk", false},
		{"shortened form", "id pk", true, "id", "pk", false},
		{"ambiguous", "id pk extra", false, "", "", true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			orig, alias, ok, err := SplitAlias(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("SplitAlias(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if ok != tc.wantOK || orig != tc.wantOrig || alias != tc.wantAlias {
				t.Fatalf("SplitAlias(%q) = (%q, %q, %v), want (%q, %q, %v)", tc.in, orig, alias, ok, tc.wantOrig, tc.wantAlias, tc.wantOK)
			}
		})
	}
}
