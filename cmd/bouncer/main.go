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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func main() {
	exec, err := os.Executable()
	if err == nil {
		exec = filepath.Base(exec)
	} else {
		exec = "bouncer"
	}

	if err := newRootCommand(exec).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func newRootCommand(name string) *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           name,
		Short:         "Check arguments against declared method contracts",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c",
		"", "a JSON file of options (overridden by BOUNCER_* variables and flags)")
	root.PersistentFlags().StringVarP(&f.manifest, "manifest", "m",
		"", "the contract manifest to load")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v",
		false, "enable additional diagnostic messages")

	root.AddCommand(newCheckCommand(&f), newListCommand(&f))
	return root
}
