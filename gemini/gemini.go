// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Basic elements shared by the whole engine.

package gemini

import (
	"fmt"
	"os"
	"sync/atomic"
)

const Version = "0.1.0"

// Port is the conventional Gemini listening port.
const Port = 1965

var _debugLevel atomic.Int32

func DebugLevel() int32         { return _debugLevel.Load() }
func SetDebugLevel(level int32) { _debugLevel.Store(level) }

func Print(v ...any)            { fmt.Fprint(os.Stdout, v...) }
func Println(v ...any)          { fmt.Fprintln(os.Stdout, v...) }
func Printf(f string, v ...any) { fmt.Fprintf(os.Stdout, f, v...) }

const ( // exit codes
	CodeBug = 20
	CodeUse = 21
	CodeEnv = 22
)

func BugExitln(v ...any)          { _exitln(CodeBug, "[BUG] ", v...) }
func BugExitf(f string, v ...any) { _exitf(CodeBug, "[BUG] ", f, v...) }

func UseExitln(v ...any)          { _exitln(CodeUse, "[USE] ", v...) }
func UseExitf(f string, v ...any) { _exitf(CodeUse, "[USE] ", f, v...) }

func EnvExitln(v ...any)          { _exitln(CodeEnv, "[ENV] ", v...) }
func EnvExitf(f string, v ...any) { _exitf(CodeEnv, "[ENV] ", f, v...) }

func _exitln(exitCode int, prefix string, v ...any) {
	fmt.Fprint(os.Stderr, prefix)
	fmt.Fprintln(os.Stderr, v...)
	os.Exit(exitCode)
}
func _exitf(exitCode int, prefix, f string, v ...any) {
	fmt.Fprintf(os.Stderr, prefix+f, v...)
	os.Exit(exitCode)
}

// ConfigError is returned when a component is misconfigured: a bad route
// table, a missing template variable, an empty redirect target, and the like.
type ConfigError struct {
	reason string
}

func NewConfigError(reason string) *ConfigError { return &ConfigError{reason: reason} }
func ConfigErrorf(f string, v ...any) *ConfigError {
	return &ConfigError{reason: fmt.Sprintf(f, v...)}
}

func (e *ConfigError) Error() string { return e.reason }
