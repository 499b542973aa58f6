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
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"github.com/pkg/errors"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema compiles a JSON Schema document into a Validator. The url
// identifies the document in error messages and for relative $refs.
//
// Values are re-encoded as JSON before validation, so Go structs and
// numeric types are checked by their JSON representation.
func JSONSchema(url string, doc []byte) (contract.Validator, error) {
	c := jsonschema.NewCompiler()
	c.ExtractAnnotations = true
	if err := c.AddResource(url, bytes.NewReader(doc)); err != nil {
		return nil, errors.Wrapf(err, "could not add schema %s", url)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, errors.Wrapf(err, "could not compile schema %s", url)
	}

	desc := compiled.Title
	if desc == "" {
		desc = url
	}
	return contract.Func(desc, func(v interface{}) error {
		doc, err := normalize(v)
		if err != nil {
			return errors.Wrapf(err, "expected %s, but was %s", desc, render(v))
		}
		return compiled.Validate(doc)
	}), nil
}

// MustJSONSchema is like JSONSchema, but panics if the schema cannot
// be compiled.
func MustJSONSchema(url string, doc []byte) contract.Validator {
	ret, err := JSONSchema(url, doc)
	if err != nil {
		panic(err)
	}
	return ret
}

// normalize converts v into the generic form produced by decoding
// JSON, preserving number precision.
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var ret interface{}
	if err := d.Decode(&ret); err != nil {
		return nil, err
	}
	return ret, nil
}
