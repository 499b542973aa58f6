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
	"sort"
	"sync"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"go.uber.org/zap"
)

type entryKey struct {
	class  string
	method string
}

// A Registry stores one Entry per (class, method) pair. Entries are
// never removed.
//
// The methods on Registry are safe to call from multiple goroutines.
type Registry struct {
	// An optional Logger to receive diagnostic messages.
	Logger *zap.Logger

	mu struct {
		sync.RWMutex
		classes map[string]*Class
		entries map[entryKey]*Entry
	}
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.mu.classes = make(map[string]*Class)
	r.mu.entries = make(map[entryKey]*Entry)
	return r
}

// Declare returns the Entry for the method, creating it if necessary.
// Repeated calls with the same key return the same Entry.
func (r *Registry) Declare(class, method string) *Entry {
	k := entryKey{class, method}

	r.mu.RLock()
	found := r.mu.entries[k]
	r.mu.RUnlock()
	if found != nil {
		return found
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.entries == nil {
		r.mu.entries = make(map[entryKey]*Entry)
	}
	// Another writer may have won the race.
	if found = r.mu.entries[k]; found == nil {
		found = &Entry{class: class, method: method}
		r.mu.entries[k] = found
		r.debug("declared", zap.String("class", class), zap.String("method", method))
	}
	return found
}

// Lookup returns the Entry for a method which has already been
// declared. Looking up an undeclared method is a *contract.ConfigError.
func (r *Registry) Lookup(class, method string) (*Entry, error) {
	r.mu.RLock()
	found := r.mu.entries[entryKey{class, method}]
	r.mu.RUnlock()
	if found == nil {
		return nil, contract.Configf(class, method, "no contract has been declared")
	}
	return found, nil
}

// SetParam records the Validator for the index-th parameter of a
// declared method. Writing beyond the current length fills the
// intervening positions with contract.Any.
func (r *Registry) SetParam(class, method string, index int, v contract.Validator) error {
	e, err := r.Lookup(class, method)
	if err != nil {
		return err
	}
	return e.setParam(index, v)
}

// SetReturn records the Validator for the result of a declared method.
func (r *Registry) SetReturn(class, method string, v contract.Validator) error {
	e, err := r.Lookup(class, method)
	if err != nil {
		return err
	}
	return e.setReturn(v)
}

// Entries returns a snapshot of all declared entries, ordered by class
// and then by method.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	ret := make([]*Entry, 0, len(r.mu.entries))
	for _, e := range r.mu.entries {
		ret = append(ret, e)
	}
	r.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].class != ret[j].class {
			return ret[i].class < ret[j].class
		}
		return ret[i].method < ret[j].method
	})
	return ret
}

// debug will emit a diagnostic message via r.Logger, if one is configured.
func (r *Registry) debug(msg string, fields ...zap.Field) {
	if l := r.Logger; l != nil {
		l.Debug(msg, fields...)
	}
}
