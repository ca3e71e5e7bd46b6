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

package sqlbuild

// ExecuteParams is the raw-SQL request intent. Unlike every other builder,
// it performs no rewriting and no validation beyond what the HTTP layer
// already enforces (the text/plain content-type check): the statement is
// prepared and executed exactly as given.
type ExecuteParams struct {
	Statement    string
	IsReturnRows bool
}

// BuildExecute passes the raw statement through unchanged. It exists
// alongside the other builders only so the orchestrator can treat all five
// request kinds uniformly.
func BuildExecute(p ExecuteParams) Statement {
	return Statement{SQL: p.Statement}
}
