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

// Package metrics counts the outcomes of contract-enforced calls.
package metrics

import (
	"reflect"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"github.com/cockroachdb/bouncer/pkg/rt"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK              = "ok"
	OutcomeParamViolation  = "param_violation"
	OutcomeReturnViolation = "return_violation"
	OutcomeConfigError     = "config_error"
	OutcomeError           = "error"
)

// A Collector counts calls by class, method and outcome.
type Collector struct {
	calls *prometheus.CounterVec
}

// New constructs a Collector and registers it with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bouncer",
			Name:      "contract_calls_total",
			Help:      "Contract-enforced calls, labeled by class, method and outcome.",
		}, []string{"class", "method", "outcome"}),
	}
	if err := reg.Register(c.calls); err != nil {
		return nil, err
	}
	return c, nil
}

// Record counts one call which finished with err.
func (c *Collector) Record(class, method string, err error) {
	c.calls.WithLabelValues(class, method, Outcome(err)).Inc()
}

// Layer returns an rt.Layer which records every call. Stack it outside
// of enforcement so that rejected calls are counted.
func (c *Collector) Layer() rt.Layer {
	return func(e *rt.Entry, next rt.Invocation) rt.Invocation {
		return func(in []reflect.Value) []reflect.Value {
			out := next(in)
			err, _ := out[len(out)-1].Interface().(error)
			c.Record(e.Class(), e.Method(), err)
			return out
		}
	}
}

// Outcome classifies an error returned from an enforced call.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if v, ok := contract.AsViolation(err); ok {
		if v.Position.IsReturn() {
			return OutcomeReturnViolation
		}
		return OutcomeParamViolation
	}
	if contract.IsConfigError(err) {
		return OutcomeConfigError
	}
	return OutcomeError
}
