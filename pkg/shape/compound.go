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

package shape

import (
	"reflect"
	"sort"
	"strings"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"github.com/pkg/errors"
)

// Fields maps record field names to their shapes.
type Fields map[string]contract.Validator

// Record accepts maps with string keys whose named fields conform to
// the given shapes.
func Record(fields Fields) contract.Validator {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sb := &strings.Builder{}
	sb.WriteString("{ ")
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(fields[name].String())
		sb.WriteString("; ")
	}
	sb.WriteString("}")
	desc := sb.String()

	return contract.Func(desc, func(v interface{}) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return mismatch(desc, v)
		}
		keyType := rv.Type().Key()
		for _, name := range names {
			var field interface{}
			if found := rv.MapIndex(reflect.ValueOf(name).Convert(keyType)); found.IsValid() {
				field = found.Interface()
			}
			if err := fields[name].Check(field); err != nil {
				return errors.Wrapf(err, "field %q", name)
			}
		}
		return nil
	})
}

// Tuple accepts slices or arrays of exactly len(elems) elements, each
// conforming to the shape at the same index.
func Tuple(elems ...contract.Validator) contract.Validator {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.String()
	}
	desc := "[" + strings.Join(parts, ", ") + "]"

	return contract.Func(desc, func(v interface{}) error {
		rv := reflect.ValueOf(v)
		if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
			return mismatch(desc, v)
		}
		if rv.Len() != len(elems) {
			return errors.Errorf("expected %s, but was an array of length %d", desc, rv.Len())
		}
		for i, e := range elems {
			if err := e.Check(rv.Index(i).Interface()); err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
		}
		return nil
	})
}

// SliceOf accepts slices or arrays whose every element conforms to
// elem.
func SliceOf(elem contract.Validator) contract.Validator {
	desc := elem.String() + "[]"
	return contract.Func(desc, func(v interface{}) error {
		rv := reflect.ValueOf(v)
		if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
			return mismatch(desc, v)
		}
		for i := 0; i < rv.Len(); i++ {
			if err := elem.Check(rv.Index(i).Interface()); err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
		}
		return nil
	})
}

// Union accepts values which conform to at least one alternative.
func Union(alts ...contract.Validator) contract.Validator {
	parts := make([]string, len(alts))
	for i, a := range alts {
		parts[i] = a.String()
	}
	desc := strings.Join(parts, " | ")

	return contract.Func(desc, func(v interface{}) error {
		for _, a := range alts {
			if a.Check(v) == nil {
				return nil
			}
		}
		return mismatch(desc, v)
	})
}

// Optional accepts nil, or a value which conforms to elem.
func Optional(elem contract.Validator) contract.Validator {
	return contract.Func(elem.String()+"?", func(v interface{}) error {
		if v == nil {
			return nil
		}
		return elem.Check(v)
	})
}

// Named returns a Validator which checks values with v, but describes
// itself as name.
func Named(name string, v contract.Validator) contract.Validator {
	return contract.Func(name, v.Check)
}
