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

package apierr

import (
	"errors"
	"net/http"
	"testing"
)

func TestUserErrorsCarryOffender(t *testing.T) {
	err := InvalidSQLIdentifier("2bad")
	if err.Offender == nil || *err.Offender != "2bad" {
		t.Fatalf("expected offender to be set, got %v", err.Offender)
	}
	if err.Internal {
		t.Fatalf("user error must not be marked internal")
	}
	if err.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", err.Status)
	}
}

func TestInternalErrorsOmitOffender(t *testing.T) {
	cause := errors.New("connection refused")
	err := DatabaseError(cause)
	if err.Offender != nil {
		t.Fatalf("internal error must not carry an offender")
	}
	if !err.Internal {
		t.Fatalf("expected internal error to be marked internal")
	}
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", err.Status)
	}
	if !errors.Is(err, err) {
		t.Fatalf("APIError should be comparable via errors.Is to itself")
	}
	if errors.Unwrap(err) != cause {
		t.Fatalf("expected Unwrap to return the wrapped cause")
	}
}

func TestCodeNeverLeaksSQLSTATEDetails(t *testing.T) {
	err := DatabaseError(errors.New("pq: duplicate key value violates unique constraint (SQLSTATE 23505)"))
	if err.Code != CodeDatabaseError {
		t.Fatalf("expected stable code %q, got %q", CodeDatabaseError, err.Code)
	}
}
