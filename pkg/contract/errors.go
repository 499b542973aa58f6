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

import (
	"fmt"

	"github.com/pkg/errors"
)

// A Violation is returned when an argument or a result does not
// conform to its Validator. It is distinct from any error produced by
// the enforced function itself, so callers can tell "my input was
// rejected" apart from "the operation failed" with errors.As.
type Violation struct {
	// The class and method on which the contract was declared.
	Class, Method string
	// The failing parameter, or Return.
	Position Position
	// The description of the Validator that rejected the value.
	Expected string
	// The rejected value, as passed by the caller or produced by the
	// method.
	Actual interface{}
	// The error reported by the Validator.
	Err error
}

var _ error = &Violation{}

// Error implements error.
func (v *Violation) Error() string {
	if v.Err == nil {
		return fmt.Sprintf("contract violation in %s: %s: expected %s, but was %v",
			qualify(v.Class, v.Method), v.Position, v.Expected, v.Actual)
	}
	return fmt.Sprintf("contract violation in %s: %s: %v",
		qualify(v.Class, v.Method), v.Position, v.Err)
}

// Unwrap returns the Validator's error.
func (v *Violation) Unwrap() error { return v.Err }

// A ConfigError reports a misdeclared contract: enforcement requested
// for a method with no metadata, a lookup of an undeclared method, a
// write to a sealed entry, or a function whose signature cannot carry
// a contract.
type ConfigError struct {
	Class, Method string
	Reason        string
}

var _ error = &ConfigError{}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("contract misconfigured for %s: %s", qualify(e.Class, e.Method), e.Reason)
}

// Configf constructs a ConfigError in a printf style.
func Configf(class, method, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Class: class, Method: method, Reason: fmt.Sprintf(format, args...)}
}

// AsViolation extracts a *Violation from the error chain, if any.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsViolation reports whether err is, or wraps, a *Violation.
func IsViolation(err error) bool {
	_, ok := AsViolation(err)
	return ok
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var c *ConfigError
	return errors.As(err, &c)
}

func qualify(class, method string) string {
	switch {
	case method == "":
		return class
	case class == "":
		return method
	default:
		return class + "." + method
	}
}
