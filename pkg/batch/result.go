// Copyright 2019 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package batch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/bouncer/pkg/contract"
)

// A Result describes the outcome of checking one Input.
type Result struct {
	// The class and method whose contract was checked.
	Class, Method string
	// Nil if the input was accepted.
	Err error
	// The Input's Source.
	Source string
}

// OK reports whether the input was accepted.
func (r Result) OK() bool { return r.Err == nil }

// String is suitable for human consumption.
func (r Result) String() string {
	return r.StringRelative("")
}

// StringRelative is suitable for human consumption and makes the
// source path relative to the given base path.
func (r Result) StringRelative(basePath string) string {
	source := r.Source
	if basePath != "" {
		if rel, err := filepath.Rel(basePath, source); err == nil {
			source = rel
		}
	}
	if r.Err == nil {
		return fmt.Sprintf("%s: ok", source)
	}
	return fmt.Sprintf("%s: %v", source, r.Err)
}

// Results is a sortable slice of Result.
type Results []*Result

var _ sort.Interface = Results{}

// Len implements sort.Interface.
func (r Results) Len() int { return len(r) }

// Less implements sort.Interface. It orders results by their source,
// then by class and method.
func (r Results) Less(i, j int) bool {
	a, b := r[i], r[j]

	if c := strings.Compare(a.Source, b.Source); c != 0 {
		return c < 0
	}
	if c := strings.Compare(a.Class, b.Class); c != 0 {
		return c < 0
	}
	return a.Method < b.Method
}

// Swap implements sort.Interface.
func (r Results) Swap(i, j int) { r[i], r[j] = r[j], r[i] }

// Violations counts the results which were rejected by a contract.
func (r Results) Violations() int {
	n := 0
	for _, res := range r {
		if contract.IsViolation(res.Err) {
			n++
		}
	}
	return n
}

// String is for debugging use only.
func (r Results) String() string {
	sb := &strings.Builder{}
	sorted := append(Results(nil), r...)
	sort.Sort(sorted)
	for _, result := range sorted {
		sb.WriteString(result.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
