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
	"fmt"
	"reflect"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"go.uber.org/zap"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// An Invocation calls through to the enforced function, or to the next
// Layer wrapped around it. The arguments include the receiver of a
// method and, for variadic functions, the variadic slice.
type Invocation func(in []reflect.Value) []reflect.Value

// A Layer decorates an Invocation. Layers passed to Bind are applied
// in order around the contract enforcement, so that the first Layer is
// the innermost one after enforcement and the last Layer is the first
// to see a call.
type Layer func(e *Entry, next Invocation) Invocation

// Bind returns a function with the same signature as fn which enforces
// the contract declared for the method before and after calling fn.
// All of fn's parameters are contract positions.
//
// fn must return an error as its last result; contract violations are
// reported through it, with all other results set to their zero
// values. Errors returned by fn itself are passed through unchanged
// and its results are then not validated.
func Bind[F any](c *Class, method string, fn F, layers ...Layer) (F, error) {
	return bind(c, method, contract.KindFunction, fn, layers)
}

// BindMethod is like Bind, but fn is a method expression such as
// (*T).Method. Its first parameter is the receiver, which is passed
// through untouched and is not a contract position.
func BindMethod[F any](c *Class, method string, fn F, layers ...Layer) (F, error) {
	return bind(c, method, contract.KindMethod, fn, layers)
}

// MustBind is like Bind, but panics if the contract is misconfigured.
func MustBind[F any](c *Class, method string, fn F, layers ...Layer) F {
	ret, err := Bind(c, method, fn, layers...)
	if err != nil {
		panic(err)
	}
	return ret
}

// MustBindMethod is like BindMethod, but panics if the contract is
// misconfigured.
func MustBindMethod[F any](c *Class, method string, fn F, layers ...Layer) F {
	ret, err := BindMethod(c, method, fn, layers...)
	if err != nil {
		panic(err)
	}
	return ret
}

func bind[F any](c *Class, method string, kind contract.Kind, fn F, layers []Layer) (F, error) {
	var zero F
	wrapped, err := c.reg.wrap(c, method, kind, reflect.ValueOf(fn), layers)
	if err != nil {
		return zero, err
	}
	return wrapped.Interface().(F), nil
}

// wrap validates fn's signature against the declared contract, seals
// the Entry, and builds the enforcing function.
func (r *Registry) wrap(
	c *Class, method string, kind contract.Kind, fn reflect.Value, layers []Layer,
) (reflect.Value, error) {
	if err := c.Err(method); err != nil {
		return reflect.Value{}, err
	}
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return reflect.Value{}, contract.Configf(c.name, method, "cannot enforce a contract on %s", describe(fn))
	}
	entry, err := r.Lookup(c.name, method)
	if err != nil {
		return reflect.Value{}, err
	}

	typ := fn.Type()
	offset := 0
	if kind == contract.KindMethod {
		if typ.NumIn() == 0 {
			return reflect.Value{}, contract.Configf(c.name, method, "%s has no receiver parameter", typ)
		}
		offset = 1
	}
	if typ.NumOut() == 0 || typ.Out(typ.NumOut()-1) != errorType {
		return reflect.Value{}, contract.Configf(c.name, method, "%s must return error as its last result", typ)
	}

	if err := entry.Ready(); err != nil {
		return reflect.Value{}, err
	}
	params, ret := entry.Params(), entry.Return()
	positions := typ.NumIn() - offset
	if len(params) == 0 && positions > 0 {
		return reflect.Value{}, contract.Configf(c.name, method,
			"no parameter validators declared, but %s accepts %d", typ, positions)
	}
	if len(params) > positions && !typ.IsVariadic() {
		return reflect.Value{}, contract.Configf(c.name, method,
			"%d parameter validators declared, but %s accepts %d", len(params), typ, positions)
	}
	if ret != nil && typ.NumOut() < 2 {
		return reflect.Value{}, contract.Configf(c.name, method,
			"return validator declared, but %s only returns an error", typ)
	}
	if err := entry.seal(kind); err != nil {
		return reflect.Value{}, err
	}

	var next Invocation = func(in []reflect.Value) []reflect.Value {
		if typ.IsVariadic() {
			return fn.CallSlice(in)
		}
		return fn.Call(in)
	}
	next = entry.enforce(typ, offset, next)
	for _, layer := range layers {
		next = layer(entry, next)
	}

	r.debug("bound", zap.Stringer("entry", entry), zap.Stringer("kind", kind),
		zap.Int("layers", len(layers)))
	return reflect.MakeFunc(typ, next), nil
}

// enforce is the runtime gate. Arguments are validated left to right
// and the first failure is returned without calling next. The result
// is validated only if next did not return an error.
func (e *Entry) enforce(typ reflect.Type, offset int, next Invocation) Invocation {
	return func(in []reflect.Value) []reflect.Value {
		if err := e.CheckArgs(positional(in[offset:], typ.IsVariadic())); err != nil {
			return failed(typ, err)
		}

		out := next(in)
		if last := out[len(out)-1]; !last.IsNil() || e.Return() == nil {
			return out
		}
		if err := e.CheckResult(result(out[:len(out)-1])); err != nil {
			return failed(typ, err)
		}
		return out
	}
}

// positional flattens call arguments into contract positions,
// expanding a trailing variadic slice.
func positional(in []reflect.Value, variadic bool) []interface{} {
	args := make([]interface{}, 0, len(in))
	for i, v := range in {
		if variadic && i == len(in)-1 {
			for j := 0; j < v.Len(); j++ {
				args = append(args, v.Index(j).Interface())
			}
			break
		}
		args = append(args, v.Interface())
	}
	return args
}

// result returns the value presented to a return Validator. Multiple
// non-error results are presented as a tuple.
func result(out []reflect.Value) interface{} {
	if len(out) == 1 {
		return out[0].Interface()
	}
	tuple := make([]interface{}, len(out))
	for i, v := range out {
		tuple[i] = v.Interface()
	}
	return tuple
}

// failed constructs zero-valued results with err in the final slot.
func failed(typ reflect.Type, err error) []reflect.Value {
	out := make([]reflect.Value, typ.NumOut())
	for i := 0; i < len(out)-1; i++ {
		out[i] = reflect.Zero(typ.Out(i))
	}
	errValue := reflect.New(errorType).Elem()
	errValue.Set(reflect.ValueOf(err))
	out[len(out)-1] = errValue
	return out
}

func describe(fn reflect.Value) string {
	if !fn.IsValid() {
		return "nil"
	}
	if fn.Kind() == reflect.Func {
		return fmt.Sprintf("nil %s", fn.Type())
	}
	return fn.Type().String()
}
