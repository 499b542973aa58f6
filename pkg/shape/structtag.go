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

	"github.com/cockroachdb/bouncer/pkg/contract"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// validate caches struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct accepts structs, or non-nil pointers to structs, whose fields
// satisfy their `validate` struct tags.
//
//   type Planet struct {
//     Type string  `validate:"eq=planet"`
//     Mass float64 `validate:"gt=0"`
//   }
func Struct() contract.Validator {
	const desc = "struct"
	return contract.Func(desc, func(v interface{}) error {
		rv := reflect.ValueOf(v)
		for rv.Kind() == reflect.Ptr && !rv.IsNil() {
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct {
			return mismatch(desc, v)
		}
		if err := validate.Struct(v); err != nil {
			return errors.Wrapf(err, "%T", v)
		}
		return nil
	})
}

// Var accepts values satisfying a validator tag, such as
// "required,email" or "min=1,max=10".
func Var(tag string) contract.Validator {
	desc := "validate:" + tag
	return contract.Func(desc, func(v interface{}) error {
		if err := validate.Var(v, tag); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
				return errors.Errorf("expected %s, but was %s (failed on %q)",
					desc, render(v), fieldErrs[0].Tag())
			}
			return errors.Wrap(err, desc)
		}
		return nil
	})
}
