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

// Package apierr defines the single error shape the HTTP surface renders:
// a stable code, a message, diagnostic details and an HTTP status, split
// into user-induced (4xx) and system-induced (5xx) kinds.
package apierr

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Stable error codes. User codes are request-induced (4xx); internal codes
// are system-induced (5xx) and never carry an Offender.
const (
	CodeIncorrectRequestBody         = "INCORRECT_REQUEST_BODY"
	CodeInvalidContentType           = "INVALID_CONTENT_TYPE"
	CodeInvalidSQLIdentifier         = "INVALID_SQL_IDENTIFIER"
	CodeSQLIdentifierKeyword         = "SQL_IDENTIFIER_KEYWORD"
	CodeInvalidSQLSyntax             = "INVALID_SQL_SYNTAX"
	CodeInvalidJSONTypeConversion    = "INVALID_JSON_TYPE_CONVERSION"
	CodeUnsupportedDataType          = "UNSUPPORTED_DATA_TYPE"
	CodeRequiredParameterMissing     = "REQUIRED_PARAMETER_MISSING"
	CodeTableStatsCacheNotEnabled    = "TABLE_STATS_CACHE_NOT_ENABLED"
	CodeTableStatsCacheNotInitialzed = "TABLE_STATS_CACHE_NOT_INITIALIZED"
	CodeJSONError                    = "JSON_ERROR"
	CodeUUIDError                    = "UUID_ERROR"
	CodeMacAddrError                 = "MAC_ADDR_ERROR"
	CodeDecimalError                 = "DECIMAL_ERROR"

	CodeDatabaseError            = "DATABASE_ERROR"
	CodePayloadError             = "PAYLOAD_ERROR"
	CodeTableColumnTypeNotFound  = "TABLE_COLUMN_TYPE_NOT_FOUND"
	CodeMemLockError             = "MEM_LOCK_ERROR"
	CodeSendMessageError         = "SEND_MESSAGE_ERROR"
)

// APIError is the sole error shape rendered by the HTTP surface. It
// satisfies both error and render.Renderer so a handler can always do
// `render.Render(w, r, err)` regardless of where the error originated.
type APIError struct {
	Code      string  `json:"code"`
	Details   string  `json:"details,omitempty"`
	Message   string  `json:"message"`
	Offender  *string `json:"offender,omitempty"`
	Status    int     `json:"-"`
	Internal  bool    `json:"-"`
	cause     error
}

var _ error = (*APIError)(nil)
var _ render.Renderer = (*APIError)(nil)

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

// Render sets the HTTP status line; go-chi/render serializes the struct's
// exported JSON fields as the body.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Status)
	return nil
}

func user(code, message, details string, offender *string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, Offender: offender, Status: status}
}

func internal(code, message string, cause error, status int) *APIError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &APIError{Code: code, Message: message, Details: details, Status: status, Internal: true, cause: cause}
}

func offending(s string) *string { return &s }

// IncorrectRequestBody reports a request body that failed JSON decoding.
func IncorrectRequestBody(details string) *APIError {
	return user(CodeIncorrectRequestBody, "the request body could not be parsed", details, nil, http.StatusBadRequest)
}

// InvalidContentType reports a Content-Type mismatch, e.g. POST /sql without text/plain.
func InvalidContentType(got string) *APIError {
	return user(CodeInvalidContentType, "unexpected content type", got, offending(got), http.StatusBadRequest)
}

// InvalidSQLIdentifier reports an identifier that fails the structural whitelist.
func InvalidSQLIdentifier(offender string) *APIError {
	return user(CodeInvalidSQLIdentifier, "identifier does not match the allowed pattern", "", offending(offender), http.StatusBadRequest)
}

// SQLIdentifierKeyword reports an identifier equal to the reserved word "table".
func SQLIdentifierKeyword(offender string) *APIError {
	return user(CodeSQLIdentifierKeyword, `identifier must not be the reserved word "table"`, "", offending(offender), http.StatusBadRequest)
}

// InvalidSQLSyntax reports a filter string that failed to parse.
func InvalidSQLSyntax(offender string, cause error) *APIError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return user(CodeInvalidSQLSyntax, "filter expression could not be parsed", details, offending(offender), http.StatusBadRequest)
}

// InvalidJSONTypeConversion reports a JSON value that cannot marshal into the target column type.
func InvalidJSONTypeConversion(offender, details string) *APIError {
	return user(CodeInvalidJSONTypeConversion, "JSON value is not convertible to the column's type", details, offending(offender), http.StatusBadRequest)
}

// UnsupportedDataType reports a database column type outside the closed set the marshaller covers.
func UnsupportedDataType(offender string) *APIError {
	return user(CodeUnsupportedDataType, "column type is not supported", "", offending(offender), http.StatusBadRequest)
}

// RequiredParameterMissing reports a mandatory query-string parameter that was absent, e.g. confirm_delete.
func RequiredParameterMissing(param string) *APIError {
	return user(CodeRequiredParameterMissing, "a required parameter was not provided", "", offending(param), http.StatusBadRequest)
}

// TableStatsCacheNotEnabled reports a reset request against an uncached deployment.
func TableStatsCacheNotEnabled() *APIError {
	return user(CodeTableStatsCacheNotEnabled, "the table stats cache is not enabled", "", nil, http.StatusBadRequest)
}

// TableStatsCacheNotInitialized reports a reset request before the cache has completed its initial bootstrap.
func TableStatsCacheNotInitialized() *APIError {
	return user(CodeTableStatsCacheNotInitialzed, "the table stats cache has not finished initializing", "", nil, http.StatusBadRequest)
}

// JSONParseError reports a scalar JSON parse failure not otherwise covered (e.g. malformed JSON literal).
func JSONParseError(offender string, cause error) *APIError {
	return user(CodeJSONError, "value could not be parsed as JSON", cause.Error(), offending(offender), http.StatusBadRequest)
}

// UUIDParseError reports a string that failed to parse as a UUID.
func UUIDParseError(offender string, cause error) *APIError {
	return user(CodeUUIDError, "value could not be parsed as a UUID", cause.Error(), offending(offender), http.StatusBadRequest)
}

// MacAddrParseError reports a string that failed to parse as a MAC address.
func MacAddrParseError(offender string, cause error) *APIError {
	return user(CodeMacAddrError, "value could not be parsed as a MAC address", cause.Error(), offending(offender), http.StatusBadRequest)
}

// DecimalParseError reports a string that failed to parse as a decimal.
func DecimalParseError(offender string, cause error) *APIError {
	return user(CodeDecimalError, "value could not be parsed as a decimal", cause.Error(), offending(offender), http.StatusBadRequest)
}

// DatabaseError wraps a driver-surfaced failure (e.g. *pgconn.PgError). SQLSTATE,
// when present, travels in Details — never in the stable Code.
func DatabaseError(cause error) *APIError {
	return internal(CodeDatabaseError, "the database returned an error", cause, http.StatusInternalServerError)
}

// PayloadError reports a failure serializing a response payload.
func PayloadError(cause error) *APIError {
	return internal(CodePayloadError, "unable to serialize response payload", cause, http.StatusInternalServerError)
}

// TableColumnTypeNotFound reports an internal invariant violation: a bind value referenced a column absent from stats.
func TableColumnTypeNotFound(column string) *APIError {
	return internal(CodeTableColumnTypeNotFound, fmt.Sprintf("no column type found for %q", column), nil, http.StatusInternalServerError)
}

// MemLockError reports a failure acquiring the stats cache's internal lock state.
func MemLockError(cause error) *APIError {
	return internal(CodeMemLockError, "unable to acquire internal cache lock", cause, http.StatusInternalServerError)
}

// SendMessageError reports a failure streaming a result down the wire.
func SendMessageError(cause error) *APIError {
	return internal(CodeSendMessageError, "unable to send response", cause, http.StatusInternalServerError)
}
