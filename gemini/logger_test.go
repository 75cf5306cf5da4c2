// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package gemini

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAccessLine(t *testing.T) {
	line := accessLine("127.0.0.1", "gemini://localhost/", StatusSuccess, "text/gemini; charset=utf-8", 35)
	if !strings.HasPrefix(line, "127.0.0.1 [") {
		t.Errorf("got %q", line)
	}
	if !strings.HasSuffix(line, `"gemini://localhost/" text/gemini 20 35`) {
		t.Errorf("got %q", line)
	}
}

func TestAccessLineNonSuccess(t *testing.T) {
	line := accessLine("127.0.0.1", "gemini://localhost/nope", StatusNotFound, textNotFound, 15)
	if !strings.HasSuffix(line, `"gemini://localhost/nope" ?? 51 15`) {
		t.Errorf("got %q", line)
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	logger, err := CreateLogger("file", &LogConfig{Target: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Logln("first line")
	logger.Logf("%s %d\n", "second line", 2)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first line\nsecond line 2\n" {
		t.Errorf("got %q", data)
	}
}

func TestFileLoggerNeedsTarget(t *testing.T) {
	if _, err := CreateLogger("file", &LogConfig{}); err == nil {
		t.Error("expected an error for an empty target")
	}
}

func TestCreateLoggerUnknown(t *testing.T) {
	if _, err := CreateLogger("nonexistent", &LogConfig{}); err == nil {
		t.Error("expected an error for an unknown sign")
	}
}
