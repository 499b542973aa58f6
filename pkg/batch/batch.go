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

// Package batch checks many argument lists against a declared contract
// without calling the method itself.
package batch

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"sync"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"github.com/cockroachdb/bouncer/pkg/metrics"
	"github.com/cockroachdb/bouncer/pkg/rt"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// An Input is one argument list.
type Input struct {
	// Where the arguments came from, usually a file name.
	Source string
	// The positional arguments.
	Args []interface{}
}

// LoadInputs reads each file as a JSON array of positional arguments.
func LoadInputs(paths ...string) ([]Input, error) {
	ret := make([]Input, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var args []interface{}
		if err := json.Unmarshal(data, &args); err != nil {
			return nil, errors.Wrapf(err, "%s: expecting a JSON array of arguments", path)
		}
		ret = append(ret, Input{Source: path, Args: args})
	}
	return ret, nil
}

// A Checker validates Inputs concurrently.
type Checker struct {
	// The Registry which holds the contracts. Required.
	Registry *rt.Registry
	// An optional Logger to receive diagnostic messages.
	Logger *zap.Logger
	// If present, every checked input is recorded.
	Metrics *metrics.Collector
	// The number of concurrent workers. Defaults to the number of CPUs.
	Workers int
}

// Check validates the arguments of every input against the contract of
// class.method. A contract violation is reported in the input's Result;
// the returned error is reserved for configuration problems and
// cancellation.
func (c *Checker) Check(ctx context.Context, class, method string, inputs []Input) (Results, error) {
	entry, err := c.Registry.Lookup(class, method)
	if err != nil {
		return nil, err
	}
	if err := entry.Ready(); err != nil {
		return nil, err
	}
	if entry.Len() == 0 {
		return nil, contract.Configf(class, method, "no parameter validators declared")
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	mu := struct {
		sync.Mutex
		results Results
	}{}

	g, gctx := errgroup.WithContext(ctx)
	ch := make(chan Input, 1)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case in, open := <-ch:
					if !open {
						return nil
					}
					res := &Result{
						Class:  class,
						Method: method,
						Err:    entry.CheckArgs(in.Args),
						Source: in.Source,
					}
					c.debug("checked", zap.String("source", in.Source), zap.Bool("ok", res.OK()))
					if c.Metrics != nil {
						c.Metrics.Record(class, method, res.Err)
					}

					mu.Lock()
					mu.results = append(mu.results, res)
					mu.Unlock()

				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}

sendLoop:
	for _, in := range inputs {
		select {
		case ch <- in:
		case <-gctx.Done():
			break sendLoop
		}
	}
	close(ch)

	if err := g.Wait(); err != nil {
		return mu.results, err
	}
	return mu.results, ctx.Err()
}

// debug will emit a diagnostic message via c.Logger, if one is configured.
func (c *Checker) debug(msg string, fields ...zap.Field) {
	if l := c.Logger; l != nil {
		l.Debug(msg, fields...)
	}
}
