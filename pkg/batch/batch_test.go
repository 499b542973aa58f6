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

package batch

import (
	"context"
	"fmt"
	"os"
	"sort"
	"testing"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"github.com/cockroachdb/bouncer/pkg/metrics"
	"github.com/cockroachdb/bouncer/pkg/rt"
	"github.com/cockroachdb/bouncer/pkg/shape"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func telescope() *rt.Registry {
	reg := rt.NewRegistry()
	reg.Class("SpaceTelescope").Method("IsPlanetHabitable", shape.Named("planet", shape.Record(shape.Fields{
		"type": shape.Literal("planet"),
		"name": shape.String,
	}))).Returns(shape.Bool)
	return reg
}

func TestLoadInputs(t *testing.T) {
	a := assert.New(t)

	inputs, err := LoadInputs("testdata/kepler.json", "testdata/empty.json")
	if a.NoError(err) && a.Len(inputs, 2) {
		a.Equal("testdata/kepler.json", inputs[0].Source)
		a.Len(inputs[0].Args, 1)
		a.Empty(inputs[1].Args)
	}

	_, err = LoadInputs("testdata/object.json")
	a.Error(err)
	_, err = LoadInputs("testdata/missing.json")
	a.True(os.IsNotExist(err), "%v", err)
}

func TestCheck(t *testing.T) {
	a := assert.New(t)

	inputs, err := LoadInputs("testdata/kepler.json", "testdata/bob.json", "testdata/empty.json")
	if !a.NoError(err) {
		return
	}
	promReg := prometheus.NewRegistry()
	collector, err := metrics.New(promReg)
	if !a.NoError(err) {
		return
	}

	c := &Checker{
		Registry: telescope(),
		Logger:   zaptest.NewLogger(t),
		Metrics:  collector,
		Workers:  2,
	}
	results, err := c.Check(context.Background(), "SpaceTelescope", "IsPlanetHabitable", inputs)
	if !a.NoError(err) {
		return
	}
	sort.Sort(results)

	a.Len(results, 3)
	a.Equal(2, results.Violations())
	a.Equal(`testdata/bob.json: contract violation in SpaceTelescope.IsPlanetHabitable: param[0]: field "type": expected literal "planet", but was nil
testdata/empty.json: contract violation in SpaceTelescope.IsPlanetHabitable: param[0]: expected { name: string; type: literal "planet"; }, but was nil
testdata/kepler.json: ok
`, results.String())

	for _, r := range results {
		if !r.OK() {
			v, ok := contract.AsViolation(r.Err)
			if a.True(ok) {
				a.Equal(contract.Param(0), v.Position)
			}
		}
	}
}

func TestCheckMany(t *testing.T) {
	a := assert.New(t)

	var inputs []Input
	for i := 0; i < 100; i++ {
		var arg interface{} = map[string]interface{}{"type": "planet", "name": fmt.Sprint(i)}
		if i%10 == 0 {
			arg = i
		}
		inputs = append(inputs, Input{Source: fmt.Sprintf("input-%03d", i), Args: []interface{}{arg}})
	}

	c := &Checker{Registry: telescope()}
	results, err := c.Check(context.Background(), "SpaceTelescope", "IsPlanetHabitable", inputs)
	if a.NoError(err) {
		a.Len(results, 100)
		a.Equal(10, results.Violations())
	}
}

func TestCheckConfigErrors(t *testing.T) {
	a := assert.New(t)

	reg := telescope()
	reg.Class("SpaceTelescope").Method("Focus")
	reg.Class("SpaceTelescope").Method("FuelNeededToReach").Returns(shape.Number)

	c := &Checker{Registry: reg}
	_, err := c.Check(context.Background(), "SpaceTelescope", "Missing", nil)
	a.True(contract.IsConfigError(err))
	_, err = c.Check(context.Background(), "SpaceTelescope", "Focus", nil)
	a.True(contract.IsConfigError(err))

	// A result contract alone leaves every argument unchecked.
	_, err = c.Check(context.Background(), "SpaceTelescope", "FuelNeededToReach",
		[]Input{{Source: "bob", Args: []interface{}{map[string]interface{}{"name": "Bob", "age": 42}}}})
	if a.True(contract.IsConfigError(err)) {
		a.Contains(err.Error(), "no parameter validators declared")
	}
}

func TestCheckCanceled(t *testing.T) {
	a := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := make([]Input, 10)
	c := &Checker{Registry: telescope(), Workers: 1}
	_, err := c.Check(ctx, "SpaceTelescope", "IsPlanetHabitable", inputs)
	a.Equal(context.Canceled, err)
}

func TestResultStringRelative(t *testing.T) {
	a := assert.New(t)

	r := &Result{Source: "/work/inputs/a.json"}
	a.Equal("inputs/a.json: ok", r.StringRelative("/work"))
	a.Equal("/work/inputs/a.json: ok", r.String())
}
