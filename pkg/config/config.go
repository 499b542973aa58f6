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

// Package config loads the options of the bouncer command.
package config

import (
	"os"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix is stripped from environment variables to form option keys.
//   BOUNCER_SET_EXIT_STATUS=true  ->  set_exit_status
const EnvPrefix = "BOUNCER_"

// Options configures the bouncer command.
type Options struct {
	// The path of the contract manifest.
	Manifest string `koanf:"manifest" validate:"required"`
	// If true, violations cause a non-zero exit status.
	SetExitStatus bool `koanf:"set_exit_status"`
	// Enables development logging.
	Verbose bool `koanf:"verbose"`
	// The number of inputs to check concurrently.
	Workers int `koanf:"workers" validate:"min=1,max=1024"`
}

// Defaults returns the option values used when nothing else is set.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"manifest":        "contracts.json",
		"set_exit_status": false,
		"verbose":         false,
		"workers":         runtime.NumCPU(),
	}
}

// Load reads options from the defaults, then the optional JSON file at
// path, then the environment. Later sources take priority.
func Load(path string) (*Options, error) {
	k := koanf.New(".")
	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrap(err, "could not read config")
		}
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, errors.Wrapf(err, "could not load config %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, errors.Wrap(err, "could not load environment")
	}

	var opts Options
	if err := k.Unmarshal("", &opts); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal config")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Validate checks the options against their struct tags.
func (o *Options) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return errors.Wrap(err, "config validation failed")
	}
	return nil
}

// envTransform converts environment variable names to option keys.
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}
