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

import "strconv"

//go:generate stringer -type Kind -trimprefix Kind

// The Kind of a contract describes how the enforced function receives
// its arguments.
type Kind int

// The various kinds determine which Go parameters are counted as
// contract positions.
//  | Kind      | Go signature                    | Positions      |
//  ---------------------------------------------------------------
//  | Method    | func(recv R, a A, b B) error    | a=0, b=1       |
//  | Function  | func(a A, b B) error            | a=0, b=1       |
const (
	// KindUnbound is reported for entries that have been declared but
	// not yet bound to a function.
	KindUnbound Kind = iota
	// A method expression like:
	//   (*Receiver).Foo
	// whose first parameter is the receiver. The receiver is passed
	// through untouched and is never validated.
	KindMethod
	// A top-level or static function:
	//   func Foo(a A) error
	// all of whose parameters are positions.
	KindFunction
)

// A Position identifies a parameter or the result of an enforced
// method.
type Position int

// Return is the Position reported for result-value violations.
const Return Position = -1

// Param returns the Position of the i-th parameter.
func Param(i int) Position { return Position(i) }

// IsReturn reports whether the position refers to the result.
func (p Position) IsReturn() bool { return p == Return }

// String renders the position as "param[i]" or "return".
func (p Position) String() string {
	if p.IsReturn() {
		return "return"
	}
	return "param[" + strconv.Itoa(int(p)) + "]"
}
