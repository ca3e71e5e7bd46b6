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

// Config is the set of toggles the HTTP surface itself needs; connector
// and logger construction happen one layer up, in cmd/.
type Config struct {
	// EnableSQLEndpoint gates POST /sql.
	EnableSQLEndpoint bool
	// EnableCacheResetEndpoint gates GET /reset_table_stats_cache.
	EnableCacheResetEndpoint bool
	// InsertBatchSize overrides sqlbuild.DefaultInsertBatchSize; zero means
	// "use the builder's default."
	InsertBatchSize int
}
