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

// Package shape provides structural Validators for dynamically-typed
// values, such as the output of encoding/json.
//
//   Vector := shape.Tuple(shape.Number, shape.Number, shape.Number)
//   Planet := shape.Record(shape.Fields{
//     "type":     shape.Literal("planet"),
//     "location": Vector,
//     "mass":     shape.Number,
//   })
//
// Records are open: fields which are not named in the shape are
// ignored. A field that is absent is checked as nil, so it passes only
// if its shape is Optional.
package shape

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"github.com/pkg/errors"
)

// Primitive shapes.
var (
	String = kindOf("string", func(v interface{}) bool {
		_, ok := v.(string)
		return ok
	})
	Number = kindOf("number", func(v interface{}) bool {
		_, ok := toFloat(v)
		return ok
	})
	Bool = kindOf("boolean", func(v interface{}) bool {
		_, ok := v.(bool)
		return ok
	})
)

func kindOf(name string, accept func(interface{}) bool) contract.Validator {
	return contract.Func(name, func(v interface{}) error {
		if accept(v) {
			return nil
		}
		return mismatch(name, v)
	})
}

// Literal accepts only values equal to lit. Numbers compare by value
// regardless of their Go type.
func Literal(lit interface{}) contract.Validator {
	desc := "literal " + render(lit)
	return contract.Func(desc, func(v interface{}) error {
		if equal(lit, v) {
			return nil
		}
		return mismatch(desc, v)
	})
}

// mismatch is the error reported by every shape in this package.
func mismatch(expected string, actual interface{}) error {
	return errors.Errorf("expected %s, but was %s", expected, render(actual))
}

func equal(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// toFloat converts any Go numeric value, or a json.Number, to float64.
func toFloat(v interface{}) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// render describes a value for an error message.
func render(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(t)
	case bool, json.Number:
		return fmt.Sprint(t)
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
