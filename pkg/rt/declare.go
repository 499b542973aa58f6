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
	"sync"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"go.uber.org/zap"
)

// A Class groups the contracts declared for one type. Class handles are
// interned by their Registry, so repeated calls to Registry.Class with
// the same name return the same handle.
type Class struct {
	name string
	reg  *Registry

	mu struct {
		sync.Mutex
		// The first declaration error seen for each method. These are
		// surfaced by Method.Err and when the method is bound.
		errs map[string]error
	}
}

// Class returns the handle for the named class.
func (r *Registry) Class(name string) *Class {
	r.mu.RLock()
	found := r.mu.classes[name]
	r.mu.RUnlock()
	if found != nil {
		return found
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.classes == nil {
		r.mu.classes = make(map[string]*Class)
	}
	if found = r.mu.classes[name]; found == nil {
		found = &Class{name: name, reg: r}
		r.mu.classes[name] = found
	}
	return found
}

// ClassOf returns the handle for the sample's type. See ClassName.
func (r *Registry) ClassOf(sample interface{}) *Class {
	return r.Class(ClassName(sample))
}

// Name returns the name of the class.
func (c *Class) Name() string { return c.name }

// Registry returns the Registry that owns the class.
func (c *Class) Registry() *Registry { return c.reg }

// Method declares a method and records the given Validators for its
// parameters, from left to right. Additional positions may be added
// with Method.Param before the method is bound. An empty name is
// reported by Method.Err and nothing is added to the Registry.
func (c *Class) Method(name string, params ...contract.Validator) *Method {
	if name == "" {
		m := &Method{class: c, entry: &Entry{class: c.name}}
		m.fail(contract.Configf(c.name, name, "empty method name"))
		return m
	}
	m := &Method{class: c, entry: c.reg.Declare(c.name, name)}
	for i, v := range params {
		m.Param(i, v)
	}
	return m
}

// Err returns the first declaration error recorded for the method.
func (c *Class) Err(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mu.errs[method]
}

// A Method is a builder for the contract of a single method.
type Method struct {
	class *Class
	entry *Entry
}

// Param records the Validator for the i-th parameter. Positions
// skipped over are filled with contract.Any.
func (m *Method) Param(i int, v contract.Validator) *Method {
	if err := m.entry.setParam(i, v); err != nil {
		m.fail(err)
	} else {
		m.class.reg.debug("param",
			zap.String("class", m.entry.class), zap.String("method", m.entry.method),
			zap.Stringer("position", contract.Param(i)), zap.Stringer("validator", v))
	}
	return m
}

// Returns records the Validator for the method's result.
func (m *Method) Returns(v contract.Validator) *Method {
	if err := m.entry.setReturn(v); err != nil {
		m.fail(err)
	} else {
		m.class.reg.debug("return",
			zap.String("class", m.entry.class), zap.String("method", m.entry.method),
			zap.Stringer("validator", v))
	}
	return m
}

// Entry returns the registry Entry being built.
func (m *Method) Entry() *Entry { return m.entry }

// Err returns the first error encountered while declaring the method.
func (m *Method) Err() error { return m.class.Err(m.entry.method) }

func (m *Method) fail(err error) {
	c := m.class
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.errs == nil {
		c.mu.errs = make(map[string]error)
	}
	if c.mu.errs[m.entry.method] == nil {
		c.mu.errs[m.entry.method] = err
	}
}
