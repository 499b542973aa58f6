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

// Package manifest declares contracts from a JSON document instead of
// Go code. Each parameter and result is described by a JSON Schema:
//
//   {
//     "classes": {
//       "SpaceTelescope": {
//         "methods": {
//           "IsPlanetHabitable": {
//             "params": [ { "$ref": "..." } ],
//             "returns": { "type": "boolean" }
//           }
//         }
//       }
//     }
//   }
//
// A null entry in "params" leaves that position unconstrained, but at
// least one parameter schema is required.
package manifest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"github.com/cockroachdb/bouncer/pkg/rt"
	"github.com/cockroachdb/bouncer/pkg/shape"
	"github.com/go-playground/validator/v10"
	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// delim separates koanf key paths; class names may contain dots.
const delim = "::"

// A Manifest is the decoded form of a contract document.
type Manifest struct {
	Classes map[string]Class `koanf:"classes" validate:"required,min=1,dive"`
}

// Class lists the contracts of one class.
type Class struct {
	Methods map[string]Method `koanf:"methods" validate:"required,min=1,dive"`
}

// Method holds JSON Schema documents for the parameters and the result
// of a method.
type Method struct {
	Params  []interface{} `koanf:"params"`
	Returns interface{}   `koanf:"returns"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	k := koanf.New(delim)
	if err := k.Load(file.Provider(path), koanfjson.Parser()); err != nil {
		return nil, errors.Wrapf(err, "could not load manifest %s", path)
	}

	var m Manifest
	if err := k.Unmarshal("", &m); err != nil {
		return nil, errors.Wrapf(err, "could not decode manifest %s", path)
	}
	if err := validator.New().Struct(&m); err != nil {
		return nil, errors.Wrapf(err, "invalid manifest %s", path)
	}
	return &m, nil
}

// Apply compiles every schema in the manifest and declares the
// resulting contracts in reg. Classes and methods are applied in name
// order and the first error stops the process.
func (m *Manifest) Apply(reg *rt.Registry) error {
	for _, className := range sortedKeys(m.Classes) {
		cls := reg.Class(className)
		methods := m.Classes[className].Methods
		for _, methodName := range sortedKeys(methods) {
			def := methods[methodName]
			decl := cls.Method(methodName)

			declared := 0
			for i, doc := range def.Params {
				if doc == nil {
					continue
				}
				declared++
				v, err := compile(schemaURL(className, methodName, fmt.Sprintf("param/%d", i)), doc)
				if err != nil {
					return err
				}
				decl.Param(i, v)
			}
			if declared == 0 {
				return contract.Configf(className, methodName, "no parameter schemas declared")
			}
			if def.Returns != nil {
				v, err := compile(schemaURL(className, methodName, "return"), def.Returns)
				if err != nil {
					return err
				}
				decl.Returns(v)
			}
			if err := decl.Err(); err != nil {
				return err
			}
			if err := decl.Entry().Ready(); err != nil {
				return err
			}
		}
	}
	return nil
}

func compile(id string, doc interface{}) (contract.Validator, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode schema %s", id)
	}
	return shape.JSONSchema(id, data)
}

// schemaURL identifies a schema document in error messages.
func schemaURL(class, method, position string) string {
	return fmt.Sprintf("mem://bouncer/%s/%s/%s.json",
		url.PathEscape(class), url.PathEscape(method), position)
}

func sortedKeys[V any](m map[string]V) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
