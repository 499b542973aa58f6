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
	"sync"
	"testing"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"github.com/cockroachdb/bouncer/pkg/shape"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type greeter struct {
	said []string
}

func (g *greeter) Greet(phrase interface{}) error {
	g.said = append(g.said, fmt.Sprintf("Hello %v", phrase))
	return nil
}

// spy returns a Validator which records that it was consulted.
func spy(name string, seen *[]string, delegate contract.Validator) contract.Validator {
	return contract.Func(delegate.String(), func(v interface{}) error {
		*seen = append(*seen, name)
		return delegate.Check(v)
	})
}

func TestFailFast(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.Class("C")

	var seen []string
	c.Method("M",
		spy("p0", &seen, shape.String),
		spy("p1", &seen, shape.Number),
		spy("p2", &seen, shape.Number),
	)
	calls := 0
	fn := MustBind(c, "M", func(x, y, z interface{}) error {
		calls++
		return nil
	})

	err := fn("ok", "bad", "also bad")
	v, ok := contract.AsViolation(err)
	if a.True(ok) {
		a.Equal(contract.Param(1), v.Position)
		a.Equal("bad", v.Actual)
		a.Equal("number", v.Expected)
	}
	a.Equal([]string{"p0", "p1"}, seen)
	a.Equal(0, calls)

	seen = nil
	a.NoError(fn("ok", 1, 2.5))
	a.Equal([]string{"p0", "p1", "p2"}, seen)
	a.Equal(1, calls)
}

func TestNoCallOnReject(t *testing.T) {
	tcs := map[string][]interface{}{
		"first":  {1, 2},
		"second": {"x", "y"},
		"both":   {true, false},
		"nil":    {nil, 2},
	}
	for name, args := range tcs {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)
			reg := NewRegistry()
			c := reg.Class("C")
			c.Method("M", shape.String, shape.Number).Returns(shape.Number)

			calls := 0
			fn := MustBind(c, "M", func(s, n interface{}) (int, error) {
				calls++
				return 1, nil
			})
			ret, err := fn(args[0], args[1])
			a.True(contract.IsViolation(err))
			a.Equal(0, ret)
			a.Equal(0, calls)
		})
	}
}

func TestReturnGate(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.Class("SpaceTelescope")
	c.Method("FuelNeededToReach", shape.String).Returns(shape.Number)

	var effects []string
	fn := MustBind(c, "FuelNeededToReach", func(target interface{}) (interface{}, error) {
		effects = append(effects, "Calculating Fuel")
		return "a lot", nil
	})

	ret, err := fn("Mars")
	a.Nil(ret)
	v, ok := contract.AsViolation(err)
	if a.True(ok) {
		a.Equal(contract.Return, v.Position)
		a.Equal("a lot", v.Actual)
	}
	a.Equal([]string{"Calculating Fuel"}, effects)
}

func TestPassThrough(t *testing.T) {
	tcs := map[string]interface{}{
		"int":    42,
		"float":  2.5,
		"string": "hello",
		"map":    map[string]interface{}{"type": "planet"},
	}
	for name, value := range tcs {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)
			reg := NewRegistry()
			c := reg.Class("C")
			c.Method("M", contract.Any).Returns(shape.Union(shape.Number, shape.String, shape.Record(nil)))

			original := func(v interface{}) (interface{}, error) { return v, nil }
			fn := MustBind(c, "M", original)

			expected, _ := original(value)
			ret, err := fn(value)
			a.NoError(err)
			a.Equal(expected, ret)
		})
	}
}

func TestReceiverPreserved(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.ClassOf(&greeter{})
	c.Method("Greet", shape.String)

	greet := MustBindMethod(c, "Greet", (*greeter).Greet)

	g1, g2 := &greeter{}, &greeter{}
	a.NoError(greet(g1, "world"))
	a.NoError(greet(g2, "moon"))
	a.Error(greet(g1, 5))

	a.Equal([]string{"Hello world"}, g1.said)
	a.Equal([]string{"Hello moon"}, g2.said)

	e, err := reg.Lookup(c.Name(), "Greet")
	if a.NoError(err) {
		a.Equal(contract.KindMethod, e.Kind())
		a.True(e.Sealed())
	}
}

func TestTypedParameters(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.Class("C")
	c.Method("M", shape.Var("min=1,max=10"))

	var got []int
	fn := MustBind(c, "M", func(n int) error {
		got = append(got, n)
		return nil
	})
	a.NoError(fn(5))
	a.Error(fn(11))
	a.Equal([]int{5}, got)
}

func TestVariadic(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.Class("C")
	c.Method("Sum", shape.String, shape.Number, shape.Number)

	var totals []float64
	fn := MustBind(c, "Sum", func(label string, values ...interface{}) error {
		total := 0.0
		for _, v := range values {
			switch n := v.(type) {
			case int:
				total += float64(n)
			case float64:
				total += n
			}
		}
		totals = append(totals, total)
		return nil
	})

	a.NoError(fn("a", 1, 2))
	// Positions beyond the declared validators accept anything.
	a.NoError(fn("b", 1, 2.5, "extra"))

	v, ok := contract.AsViolation(fn("c", 1, "two"))
	if a.True(ok) {
		a.Equal(contract.Param(2), v.Position)
	}
	// Missing variadic positions are checked against nil.
	v, ok = contract.AsViolation(fn("d", 1))
	if a.True(ok) {
		a.Equal(contract.Param(2), v.Position)
	}
	a.Equal([]float64{3, 3.5}, totals)
}

func TestErrorPassThrough(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.Class("C")
	c.Method("M", shape.String).Returns(shape.Number)

	sentinel := errors.New("telescope offline")
	fn := MustBind(c, "M", func(target interface{}) (interface{}, error) {
		return "not a number", sentinel
	})

	ret, err := fn("Mars")
	a.Same(sentinel, err)
	a.Equal("not a number", ret)
	a.False(contract.IsViolation(err))
}

func TestTupleResults(t *testing.T) {
	tcs := map[string]struct {
		returns contract.Validator
		ok      bool
	}{
		"match":    {shape.Tuple(shape.String, shape.Number), true},
		"mismatch": {shape.Tuple(shape.String, shape.String), false},
		"length":   {shape.Tuple(shape.String), false},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)
			reg := NewRegistry()
			c := reg.Class("C")
			c.Method("M").Returns(tc.returns)

			fn := MustBind(c, "M", func() (string, int, error) {
				return "answer", 42, nil
			})
			s, n, err := fn()
			if tc.ok {
				a.NoError(err)
				a.Equal("answer", s)
				a.Equal(42, n)
				return
			}
			v, ok := contract.AsViolation(err)
			if a.True(ok) {
				a.Equal(contract.Return, v.Position)
				a.Equal([]interface{}{"answer", 42}, v.Actual)
			}
			a.Equal("", s)
			a.Equal(0, n)
		})
	}
}

func TestBindConfigErrors(t *testing.T) {
	tcs := map[string]struct {
		setup func(c *Class) error
		msg   string
	}{
		"undeclared": {
			setup: func(c *Class) error {
				_, err := Bind(c, "M", func(interface{}) error { return nil })
				return err
			},
			msg: "no contract has been declared",
		},
		"empty": {
			setup: func(c *Class) error {
				c.Method("M")
				_, err := Bind(c, "M", func(interface{}) error { return nil })
				return err
			},
			msg: "no parameter or return validators declared",
		},
		"nil func": {
			setup: func(c *Class) error {
				c.Method("M", shape.String)
				var fn func(interface{}) error
				_, err := Bind(c, "M", fn)
				return err
			},
			msg: "cannot enforce a contract on nil func(interface {}) error",
		},
		"not a func": {
			setup: func(c *Class) error {
				c.Method("M", shape.String)
				_, err := Bind(c, "M", 42)
				return err
			},
			msg: "cannot enforce a contract on int",
		},
		"no error result": {
			setup: func(c *Class) error {
				c.Method("M", shape.String)
				_, err := Bind(c, "M", func(interface{}) int { return 0 })
				return err
			},
			msg: "func(interface {}) int must return error as its last result",
		},
		"too many params": {
			setup: func(c *Class) error {
				c.Method("M", shape.String, shape.String)
				_, err := Bind(c, "M", func(interface{}) error { return nil })
				return err
			},
			msg: "2 parameter validators declared, but func(interface {}) error accepts 1",
		},
		"receiver is not a position": {
			setup: func(c *Class) error {
				c.Method("Greet", shape.String, shape.String)
				_, err := BindMethod(c, "Greet", (*greeter).Greet)
				return err
			},
			msg: "2 parameter validators declared, but func(*rt.greeter, interface {}) error accepts 1",
		},
		"return without result": {
			setup: func(c *Class) error {
				c.Method("M").Returns(shape.String)
				_, err := Bind(c, "M", func() error { return nil })
				return err
			},
			msg: "return validator declared, but func() error only returns an error",
		},
		"return only with parameters": {
			setup: func(c *Class) error {
				c.Method("FuelNeededToReach").Returns(shape.Number)
				_, err := Bind(c, "FuelNeededToReach", func(target interface{}) (int, error) { return 0, nil })
				return err
			},
			msg: "no parameter validators declared, but func(interface {}) (int, error) accepts 1",
		},
		"return only method with parameters": {
			setup: func(c *Class) error {
				c.Method("Greet").Returns(shape.String)
				_, err := BindMethod(c, "Greet", func(g *greeter, phrase interface{}) (string, error) { return "", nil })
				return err
			},
			msg: "no parameter validators declared, but func(*rt.greeter, interface {}) (string, error) accepts 1",
		},
		"no receiver": {
			setup: func(c *Class) error {
				c.Method("M").Returns(shape.String)
				_, err := BindMethod(c, "M", func() (string, error) { return "", nil })
				return err
			},
			msg: "func() (string, error) has no receiver parameter",
		},
		"rebind as different kind": {
			setup: func(c *Class) error {
				c.Method("Greet", shape.String)
				if _, err := Bind(c, "Greet", func(interface{}) error { return nil }); err != nil {
					return err
				}
				_, err := BindMethod(c, "Greet", (*greeter).Greet)
				return err
			},
			msg: "already bound as a Function, cannot rebind as a Method",
		},
		"declaration error": {
			setup: func(c *Class) error {
				c.Method("M", shape.String).Param(-1, shape.String)
				_, err := Bind(c, "M", func(interface{}) error { return nil })
				return err
			},
			msg: "negative parameter index -1",
		},
		"declare after bind": {
			setup: func(c *Class) error {
				m := c.Method("M", shape.String)
				if _, err := Bind(c, "M", func(interface{}) error { return nil }); err != nil {
					return err
				}
				return m.Param(1, shape.Number).Err()
			},
			msg: "cannot declare param[1] after the method has been bound",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)
			reg := NewRegistry()
			err := tc.setup(reg.Class("C"))
			if a.Error(err) {
				a.True(contract.IsConfigError(err), "%T", err)
				a.Contains(err.Error(), tc.msg)
			}
		})
	}
}

func TestMustBindPanics(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.Class("C")

	a.Panics(func() { MustBind(c, "Missing", func(interface{}) error { return nil }) })
	a.Panics(func() { MustBindMethod(c, "Missing", (*greeter).Greet) })
}

func TestRebindSameKind(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.Class("C")
	c.Method("M", shape.String)

	first := MustBind(c, "M", func(interface{}) error { return nil })
	second := MustBind(c, "M", func(interface{}) error { return errors.New("second") })
	a.NoError(first("x"))
	a.EqualError(second("x"), "second")
	a.True(contract.IsViolation(second(1)))
}

func TestLayerOrder(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.Class("C")
	c.Method("M", shape.String)

	var order []string
	named := func(name string) Layer {
		return func(e *Entry, next Invocation) Invocation {
			return func(in []reflect.Value) []reflect.Value {
				order = append(order, name)
				return next(in)
			}
		}
	}

	fn := MustBind(c, "M", func(interface{}) error {
		order = append(order, "body")
		return nil
	}, named("inner"), named("outer"))

	a.NoError(fn("ok"))
	a.Equal([]string{"outer", "inner", "body"}, order)

	order = nil
	a.Error(fn(5))
	a.Equal([]string{"outer", "inner"}, order)
}

func TestLogged(t *testing.T) {
	a := assert.New(t)
	core, logs := observer.New(zapcore.InfoLevel)

	reg := NewRegistry()
	c := reg.Class("SayHi")
	c.Method("Greet", shape.String)
	greet := MustBindMethod(c, "Greet", (*greeter).Greet, Logged(zap.New(core)))

	g := &greeter{}
	a.NoError(greet(g, "world"))
	a.Error(greet(g, 5))
	a.Equal([]string{"Hello world"}, g.said)

	called := logs.FilterMessage("called").All()
	if a.Len(called, 2) {
		fields := called[0].ContextMap()
		a.Equal("SayHi", fields["class"])
		a.Equal("Greet", fields["method"])
		a.Equal([]interface{}{"world"}, fields["args"])
		a.Equal([]interface{}{5}, called[1].ContextMap()["args"])
	}

	// A nil logger is tolerated.
	c.Method("Wave", shape.String)
	wave := MustBindMethod(c, "Wave", (*greeter).Greet, Logged(nil))
	a.NoError(wave(g, "bye"))
}

func TestRegistryLogger(t *testing.T) {
	a := assert.New(t)
	core, logs := observer.New(zapcore.DebugLevel)

	reg := NewRegistry()
	reg.Logger = zap.New(core)
	c := reg.Class("C")
	c.Method("M", shape.String)
	MustBind(c, "M", func(interface{}) error { return nil })

	a.Equal(1, logs.FilterMessage("declared").Len())
	a.Equal(1, logs.FilterMessage("param").Len())
	bound := logs.FilterMessage("bound").All()
	if a.Len(bound, 1) {
		a.Equal("Function", bound[0].ContextMap()["kind"])
	}
}

func TestConcurrentCalls(t *testing.T) {
	a := assert.New(t)
	reg := NewRegistry()
	c := reg.Class("C")
	c.Method("M", shape.Number).Returns(shape.Number)

	fn := MustBind(c, "M", func(n int) (int, error) { return n * 2, nil })

	var wg sync.WaitGroup
	results := make([]int, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = fn(i)
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		a.Equal(i*2, r)
	}
}
