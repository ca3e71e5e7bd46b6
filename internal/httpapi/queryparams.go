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

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/kaibyao/pgrest/internal/apierr"
)

// csvParam splits a comma-separated query parameter into its lowercased,
// trimmed elements. An absent parameter returns a nil slice; an empty
// element (e.g. "a,,b" or a lone ",") is a request error.
func csvParam(values url.Values, name string) ([]string, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		elem := strings.ToLower(strings.TrimSpace(p))
		if elem == "" {
			return nil, apierr.IncorrectRequestBody("query parameter \"" + name + "\" contains an empty element")
		}
		out = append(out, elem)
	}
	return out, nil
}

// scalarParam lowercases and trims a single-value query parameter, or
// returns nil when absent.
func scalarParam(values url.Values, name string) *string {
	if !values.Has(name) {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(values.Get(name)))
	return &v
}

// intParam parses an integer-valued query parameter, or returns nil when absent.
func intParam(values url.Values, name string) (*int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apierr.IncorrectRequestBody("query parameter \"" + name + "\" must be an integer")
	}
	return &n, nil
}

// boolParam parses a "true"/"false" query parameter, defaulting to false
// when absent.
func boolParam(values url.Values, name string) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(values.Get(name)))
	switch raw {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	default:
		return false, apierr.IncorrectRequestBody("query parameter \"" + name + "\" must be true or false")
	}
}
