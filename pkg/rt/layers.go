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
	"reflect"

	"github.com/cockroachdb/bouncer/pkg/contract"
	"go.uber.org/zap"
)

// Logged returns a Layer which logs the arguments of every call at
// info level. A method's receiver is not logged. When stacked outside
// of enforcement, rejected calls are logged too.
func Logged(logger *zap.Logger) Layer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(e *Entry, next Invocation) Invocation {
		return func(in []reflect.Value) []reflect.Value {
			args := in
			if e.Kind() == contract.KindMethod && len(args) > 0 {
				args = args[1:]
			}
			fields := make([]interface{}, len(args))
			for i, v := range args {
				fields[i] = v.Interface()
			}
			logger.Info("called",
				zap.String("class", e.Class()),
				zap.String("method", e.Method()),
				zap.Any("args", fields))
			return next(in)
		}
	}
}
