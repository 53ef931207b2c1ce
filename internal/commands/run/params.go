// Copyright 2025 Tom Barlow
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

package run

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

// paramsValue collects repeated --param key=value flags. Values stay
// strings; the operation schema coerces them to their declared types.
type paramsValue map[string]interface{}

var _ pflag.Value = paramsValue(nil)

func (p paramsValue) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(pairs, ",")
}

func (p paramsValue) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	p[key] = value
	return nil
}

func (p paramsValue) Type() string {
	return "key=value"
}
