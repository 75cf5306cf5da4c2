// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Unit tests for the template handler.

package gemini

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func templateFile(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.txt")
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTemplateResponse(t *testing.T) {
	path := templateFile(t, "First var: $var1 / Second var: $var2")
	resp, err := NewTemplateResponse(path, map[string]string{"var1": "value1", "var2": "value2"})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(resp.Body()); got != "First var: value1 / Second var: value2" {
		t.Errorf("body %q", got)
	}
	if got := string(MarshalResponse(resp)); got != "20 text/gemini; charset=utf-8\r\nFirst var: value1 / Second var: value2\r\n" {
		t.Errorf("wire %q", got)
	}

	// Extra context entries are fine.
	if _, err := NewTemplateResponse(path, map[string]string{"var1": "a", "var2": "b", "other": "c"}); err != nil {
		t.Error(err)
	}
}

func TestTemplateResponseMissingVariable(t *testing.T) {
	path := templateFile(t, "First var: $var1 / Second var: $var2")
	var cfgErr *ConfigError
	if _, err := NewTemplateResponse(path, nil); !errors.As(err, &cfgErr) {
		t.Errorf("want *ConfigError, got %v", err)
	}
	if _, err := NewTemplateResponse(path, map[string]string{"var1": "value1"}); !errors.As(err, &cfgErr) {
		t.Errorf("want *ConfigError, got %v", err)
	}
}

func TestTemplateResponseMissingFile(t *testing.T) {
	var cfgErr *ConfigError
	_, err := NewTemplateResponse("/tmp/not-a-template", nil)
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want *ConfigError, got %v", err)
	}
	if cfgErr.Error() != "template file not found: `/tmp/not-a-template`" {
		t.Errorf("reason %q", cfgErr.Error())
	}
}

func TestExpandTemplate(t *testing.T) {
	ctx := map[string]string{"name": "Ada", "x": "1"}
	for source, want := range map[string]string{
		"Hi $name":        "Hi Ada",
		"Hi ${name}!":     "Hi Ada!",
		"$x$x$x":          "111",
		"cost: $$5":       "cost: $5",
		"no variables":    "no variables",
		"trailing $":      "trailing $",
		"$x and literal$": "1 and literal$",
	} {
		got, err := expandTemplate([]byte(source), ctx)
		if err != nil {
			t.Fatalf("%q: %s", source, err.Error())
		}
		if string(got) != want {
			t.Errorf("%q: got %q, want %q", source, got, want)
		}
	}
}

func TestTemplateHandler(t *testing.T) {
	path := templateFile(t, "Hi $name")
	handler, err := NewTemplateHandler(path, func() map[string]string {
		return map[string]string{"name": "Ada"}
	})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := handler.GetResponse(mustParse(t, "gemini://localhost/hello"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(resp.Body()); got != "Hi Ada" {
		t.Errorf("body %q", got)
	}
}

func TestTemplateHandlerMissingContext(t *testing.T) {
	path := templateFile(t, "Hi $name")
	handler, err := NewTemplateHandler(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = handler.GetResponse(mustParse(t, "gemini://localhost/hello"))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want *ConfigError, got %v", err)
	}
	// The engine maps this to a permanent failure for the one request.
	resp := errorResponse(err)
	if resp.Status() != StatusPermanentFailure {
		t.Errorf("status %d, want %d", resp.Status(), StatusPermanentFailure)
	}
}

func TestTemplateHandlerMissingFile(t *testing.T) {
	if _, err := NewTemplateHandler("/tmp/not-a-template", nil); err == nil {
		t.Error("want configuration error")
	}
}
