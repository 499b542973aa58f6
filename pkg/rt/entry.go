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

package rt

import (
	"strings"
	"sync"

	"github.com/cockroachdb/bouncer/pkg/contract"
)

// An Entry holds the contract for a single method: one Validator per
// parameter position and an optional return Validator.
//
// Positions below the highest declared index which were never given a
// Validator hold contract.Any. Once the method has been bound, the
// Entry is sealed and rejects further writes.
type Entry struct {
	class  string
	method string

	mu struct {
		sync.RWMutex
		kind   contract.Kind
		params []contract.Validator
		ret    contract.Validator
		sealed bool
	}
}

// Class returns the name of the class that declared the method.
func (e *Entry) Class() string { return e.class }

// Method returns the name of the method.
func (e *Entry) Method() string { return e.method }

// Kind returns the kind of function that the Entry was bound to, or
// contract.KindUnbound.
func (e *Entry) Kind() contract.Kind {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mu.kind
}

// Len returns the number of declared parameter positions.
func (e *Entry) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.mu.params)
}

// Param returns the Validator for the i-th parameter. Positions beyond
// the declared length are checked by contract.Any.
func (e *Entry) Param(i int) contract.Validator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i < 0 || i >= len(e.mu.params) {
		return contract.Any
	}
	return e.mu.params[i]
}

// Params returns a copy of the parameter Validators.
func (e *Entry) Params() []contract.Validator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]contract.Validator(nil), e.mu.params...)
}

// Return returns the result Validator, which may be nil.
func (e *Entry) Return() contract.Validator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mu.ret
}

// Sealed reports whether the Entry has been bound to a function.
func (e *Entry) Sealed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mu.sealed
}

// Ready returns a *contract.ConfigError if the Entry holds neither a
// parameter nor a return Validator.
func (e *Entry) Ready() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.mu.params) == 0 && e.mu.ret == nil {
		return contract.Configf(e.class, e.method, "no parameter or return validators declared")
	}
	return nil
}

// CheckArgs validates positional arguments from left to right and
// reports the first failure as a *contract.Violation. Positions for
// which no argument was supplied are checked against nil.
func (e *Entry) CheckArgs(args []interface{}) error {
	params := e.Params()
	n := len(args)
	if len(params) > n {
		n = len(params)
	}
	for i := 0; i < n; i++ {
		v := contract.Any
		if i < len(params) {
			v = params[i]
		}
		var arg interface{}
		if i < len(args) {
			arg = args[i]
		}
		if err := v.Check(arg); err != nil {
			return e.violation(contract.Param(i), v, arg, err)
		}
	}
	return nil
}

// CheckResult validates a result against the return Validator, if one
// has been declared.
func (e *Entry) CheckResult(result interface{}) error {
	v := e.Return()
	if v == nil {
		return nil
	}
	if err := v.Check(result); err != nil {
		return e.violation(contract.Return, v, result, err)
	}
	return nil
}

// String is suitable for human consumption.
//   SpaceTelescope.FuelNeededToReach(asteroid | planet) -> number
func (e *Entry) String() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sb := &strings.Builder{}
	sb.WriteString(e.class)
	sb.WriteString(".")
	sb.WriteString(e.method)
	sb.WriteString("(")
	for i, p := range e.mu.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(")")
	if e.mu.ret != nil {
		sb.WriteString(" -> ")
		sb.WriteString(e.mu.ret.String())
	}
	return sb.String()
}

func (e *Entry) violation(
	pos contract.Position, v contract.Validator, actual interface{}, err error,
) *contract.Violation {
	return &contract.Violation{
		Class:    e.class,
		Method:   e.method,
		Position: pos,
		Expected: v.String(),
		Actual:   actual,
		Err:      err,
	}
}

func (e *Entry) setParam(index int, v contract.Validator) error {
	if index < 0 {
		return contract.Configf(e.class, e.method, "negative parameter index %d", index)
	}
	if v == nil {
		return contract.Configf(e.class, e.method, "nil validator for %s", contract.Param(index))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mu.sealed {
		return contract.Configf(e.class, e.method, "cannot declare %s after the method has been bound",
			contract.Param(index))
	}
	for len(e.mu.params) <= index {
		e.mu.params = append(e.mu.params, contract.Any)
	}
	e.mu.params[index] = v
	return nil
}

func (e *Entry) setReturn(v contract.Validator) error {
	if v == nil {
		return contract.Configf(e.class, e.method, "nil validator for %s", contract.Return)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mu.sealed {
		return contract.Configf(e.class, e.method, "cannot declare %s after the method has been bound",
			contract.Return)
	}
	e.mu.ret = v
	return nil
}

// seal marks the Entry as bound. An Entry may be bound more than once,
// but only to functions of the same kind.
func (e *Entry) seal(kind contract.Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mu.sealed && e.mu.kind != kind {
		return contract.Configf(e.class, e.method, "already bound as a %s, cannot rebind as a %s",
			e.mu.kind, kind)
	}
	e.mu.kind = kind
	e.mu.sealed = true
	return nil
}
