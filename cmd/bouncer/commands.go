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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/cockroachdb/bouncer/pkg/batch"
	"github.com/cockroachdb/bouncer/pkg/config"
	"github.com/cockroachdb/bouncer/pkg/manifest"
	"github.com/cockroachdb/bouncer/pkg/metrics"
	"github.com/cockroachdb/bouncer/pkg/rt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// flags holds values shared by all subcommands.
type flags struct {
	configPath string
	manifest   string
	verbose    bool
}

// options loads the configured options and applies any flags which
// were set explicitly on the command line.
func (f *flags) options(cmd *cobra.Command) (*config.Options, error) {
	opts, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("manifest") {
		opts.Manifest = f.manifest
	}
	if cmd.Flags().Changed("verbose") {
		opts.Verbose = f.verbose
	}
	if cmd.Flags().Changed("set_exit_status") {
		opts.SetExitStatus, _ = cmd.Flags().GetBool("set_exit_status")
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers, _ = cmd.Flags().GetInt("workers")
	}
	return opts, opts.Validate()
}

// registry loads the manifest into a new Registry.
func registry(opts *config.Options, logger *zap.Logger) (*rt.Registry, error) {
	m, err := manifest.Load(opts.Manifest)
	if err != nil {
		return nil, err
	}
	reg := rt.NewRegistry()
	reg.Logger = logger
	if err := m.Apply(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

// splitMethod splits "pkg/path.Class.Method" at the final dot.
func splitMethod(qualified string) (class, method string, err error) {
	idx := strings.LastIndex(qualified, ".")
	if idx <= 0 || idx == len(qualified)-1 {
		return "", "", errors.Errorf("expecting Class.Method, got %q", qualified)
	}
	return qualified[:idx], qualified[idx+1:], nil
}

func newCheckCommand(f *flags) *cobra.Command {
	var method string
	var showMetrics bool
	check := &cobra.Command{
		Use:   "check --method Class.Method [files]",
		Short: "Check JSON argument lists against a method's contract",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			className, methodName, err := splitMethod(method)
			if err != nil {
				return err
			}
			reg, err := registry(opts, logger)
			if err != nil {
				return err
			}
			inputs, err := batch.LoadInputs(args...)
			if err != nil {
				return err
			}

			promReg := prometheus.NewRegistry()
			collector, err := metrics.New(promReg)
			if err != nil {
				return err
			}

			checker := &batch.Checker{
				Registry: reg,
				Logger:   logger,
				Metrics:  collector,
				Workers:  opts.Workers,
			}
			results, err := checker.Check(ctx, className, methodName, inputs)
			if err != nil {
				return err
			}

			wd, _ := os.Getwd()
			sort.Sort(results)
			out := cmd.OutOrStdout()
			for _, result := range results {
				fmt.Fprintln(out, result.StringRelative(wd))
			}
			if showMetrics {
				if err := printMetrics(cmd, promReg); err != nil {
					return err
				}
			}
			if n := results.Violations(); n > 0 && opts.SetExitStatus {
				return errors.Errorf("%d of %d inputs violate the contract", n, len(results))
			}
			return nil
		},
	}
	check.Flags().StringVar(&method, "method", "", "the Class.Method whose contract to check")
	_ = check.MarkFlagRequired("method")
	check.Flags().Bool("set_exit_status", false, "return a non-zero exit code if violations are found")
	check.Flags().Int("workers", 0, "the number of inputs to check concurrently")
	check.Flags().BoolVar(&showMetrics, "metrics", false, "print outcome counters after checking")
	return check
}

func newListCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists all contracts declared in the manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return err
			}
			reg, err := registry(opts, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, entry := range reg.Entries() {
				fmt.Fprintln(out, entry)
			}
			return nil
		},
	}
}

// printMetrics writes every counter in the registry as one line.
func printMetrics(cmd *cobra.Command, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s{%s} %v\n",
				family.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}
