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

// Package contract defines the extension points and error types shared
// by the bouncer runtime.
//
// A contract is an ordered list of parameter Validators plus an
// optional return Validator, declared against a (class, method) pair.
// The runtime in package rt stores those declarations and wraps the
// original function so that every call is checked before and after the
// body runs:
//
//   telescope := registry.Class("SpaceTelescope")
//   telescope.Method("IsPlanetHabitable", Planet).Returns(shape.Bool)
//   isHabitable := rt.MustBind(telescope, "IsPlanetHabitable", isPlanetHabitable)
//
// Validators are opaque to the runtime. Anything that implements
// Validator may be used; package shape provides a small combinator
// library and adapters for JSON Schema and struct tags.
//
// Positions are counted from zero and never include a method receiver.
// Positions which were not given an explicit Validator are filled
// with Any, so looking up a position never fails structurally.
//
// Two kinds of error are produced. A *Violation means that an argument
// or a result did not match its Validator; the caller may correct its
// input and retry. A *ConfigError means that the contract itself was
// misdeclared, for instance enforcement was requested for a method
// that was never declared. ConfigErrors are programmer bugs and are
// reported as early as possible, usually at bind time.
//
// Lastly, passing malformed data to a bound method results in the
// bouncer turning it away at the door. Nobody argues with the bouncer.
package contract
