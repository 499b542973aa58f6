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

package contract

// A Validator implements some shape-checking logic for a single value.
// Validators must not retain or mutate the values they are given; the
// same instance is shared by every method that references it.
type Validator interface {
	// Check will be called by the runtime for every argument or result
	// that the Validator is bound to. A nil return means the value
	// conforms; any error returned describes why it does not.
	Check(value interface{}) error
	// String describes the expected shape, for use in error messages.
	String() string
}

// Any accepts every value. The runtime uses it to fill positions that
// have no explicit Validator.
var Any Validator = anyValidator{}

type anyValidator struct{}

// Check implements Validator.
func (anyValidator) Check(interface{}) error { return nil }

// String implements Validator.
func (anyValidator) String() string { return "any" }

// Func adapts a plain function into a Validator with the given
// description.
func Func(description string, fn func(value interface{}) error) Validator {
	return &funcValidator{description, fn}
}

type funcValidator struct {
	description string
	fn          func(interface{}) error
}

var (
	_ Validator = anyValidator{}
	_ Validator = &funcValidator{}
)

// Check implements Validator.
func (f *funcValidator) Check(value interface{}) error { return f.fn(value) }

// String implements Validator.
func (f *funcValidator) String() string { return f.description }
