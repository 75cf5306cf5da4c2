// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Loggers for access and error lines. Extensions may register their own.

package gemini

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	loggersLock    sync.RWMutex
	loggerCreators = make(map[string]func(config *LogConfig) (Logger, error)) // indexed by loggerSign
)

func RegisterLogger(loggerSign string, create func(config *LogConfig) (Logger, error)) {
	loggersLock.Lock()
	defer loggersLock.Unlock()

	if _, ok := loggerCreators[loggerSign]; ok {
		BugExitln("logger conflicts")
	}
	loggerCreators[loggerSign] = create
}

func CreateLogger(loggerSign string, config *LogConfig) (Logger, error) {
	loggersLock.RLock()
	create := loggerCreators[loggerSign]
	loggersLock.RUnlock()

	if create == nil {
		return nil, ConfigErrorf("unknown logger sign: %s", loggerSign)
	}
	return create(config)
}

// LogConfig
type LogConfig struct {
	Target string // "/path/to/file.log", "broker:9092/topic", ...
}

// Logger is the logger for servers.
type Logger interface {
	Log(v ...any)
	Logln(v ...any)
	Logf(f string, v ...any)
	Close()
}

func init() {
	RegisterLogger("noop", func(config *LogConfig) (Logger, error) {
		return noopLogger{}, nil
	})
	RegisterLogger("console", func(config *LogConfig) (Logger, error) {
		return consoleLogger{}, nil
	})
	RegisterLogger("file", func(config *LogConfig) (Logger, error) {
		if config.Target == "" {
			return nil, NewConfigError("file logger needs a target path")
		}
		file, err := os.OpenFile(config.Target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		l := new(fileLogger)
		l.file = file
		l.writer = bufio.NewWriter(file)
		return l, nil
	})
}

// noopLogger
type noopLogger struct{}

func (noopLogger) Log(v ...any)            {}
func (noopLogger) Logln(v ...any)          {}
func (noopLogger) Logf(f string, v ...any) {}
func (noopLogger) Close()                  {}

// consoleLogger writes to stderr.
type consoleLogger struct{}

func (consoleLogger) Log(v ...any)            { fmt.Fprint(os.Stderr, v...) }
func (consoleLogger) Logln(v ...any)          { fmt.Fprintln(os.Stderr, v...) }
func (consoleLogger) Logf(f string, v ...any) { fmt.Fprintf(os.Stderr, f, v...) }
func (consoleLogger) Close()                  {}

// fileLogger appends to one log file.
type fileLogger struct {
	file   *os.File
	writer *bufio.Writer
	lock   sync.Mutex
}

func (l *fileLogger) Log(v ...any) {
	l.lock.Lock()
	fmt.Fprint(l.writer, v...)
	l.lock.Unlock()
}
func (l *fileLogger) Logln(v ...any) {
	l.lock.Lock()
	fmt.Fprintln(l.writer, v...)
	l.lock.Unlock()
}
func (l *fileLogger) Logf(f string, v ...any) {
	l.lock.Lock()
	fmt.Fprintf(l.writer, f, v...)
	l.lock.Unlock()
}
func (l *fileLogger) Close() {
	l.lock.Lock()
	l.writer.Flush()
	l.file.Close()
	l.lock.Unlock()
}

const accessTimeFormat = "02/Jan/2006:15:04:05 -0700"

// accessLine renders one access log entry: peer, timestamp, request line,
// mimetype, status, response size. Only a success response carries a
// mimetype in its meta; everything else logs "??" in that column.
func accessLine(peer string, raw string, status int16, meta string, size int) string {
	mimeType := meta
	if status != StatusSuccess {
		mimeType = "??"
	} else if p := strings.IndexByte(mimeType, ';'); p >= 0 {
		mimeType = mimeType[:p]
	}
	return fmt.Sprintf("%s [%s] %q %s %d %d", peer, time.Now().Format(accessTimeFormat), raw, mimeType, status, size)
}
