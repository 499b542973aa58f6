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

// Package rt contains the runtime which records contract declarations
// and enforces them on every call of a bound function.
//
// Declarations are made through a Class handle. Parameters are
// recorded left-to-right, in the order they are given:
//
//   greeter := registry.ClassOf((*SayHi)(nil))
//   greeter.Method("Greet", shape.String)
//   greet := rt.MustBindMethod(greeter, "Greet", (*SayHi).Greet)
//   err := greet(bob, "world")
//
// Binding seals the method's Entry, so every parameter must be
// declared before Bind is called. A sealed Entry is read-only and may
// be shared between goroutines without further coordination.
package rt

import (
	"reflect"
)

// Default is a process-wide Registry for programs that do not need
// more than one.
var Default = NewRegistry()

// ClassName returns the name under which contracts for the sample's
// type are declared. Pointers are dereferenced, so that T and *T share
// a name; named types are qualified by their package path.
//   ClassName((*SayHi)(nil)) == "github.com/example/greeter.SayHi"
func ClassName(sample interface{}) string {
	t := reflect.TypeOf(sample)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
