// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// The template handler substitutes named variables into a template file.

package gemini

import (
	"bytes"
	"os"
)

// TemplateResponse is a substituted template served as gemini text.
type TemplateResponse struct {
	content []byte
}

// NewTemplateResponse loads templateFile and substitutes every $name (or
// ${name}) placeholder from context. $$ escapes a literal dollar. A missing
// file or a placeholder without a context entry is a configuration error;
// placeholders are never silently dropped.
func NewTemplateResponse(templateFile string, context map[string]string) (*TemplateResponse, error) {
	source, err := os.ReadFile(templateFile)
	if err != nil {
		return nil, ConfigErrorf("template file not found: `%s`", templateFile)
	}
	content, err := expandTemplate(source, context)
	if err != nil {
		return nil, err
	}
	return &TemplateResponse{content: content}, nil
}

func (r *TemplateResponse) Status() int16 { return StatusSuccess }
func (r *TemplateResponse) Meta() string  { return defaultType }
func (r *TemplateResponse) Body() []byte  { return r.content }

// TemplateHandler serves one template file, with the context produced per
// request by a user-supplied function.
type TemplateHandler struct {
	// Parent
	Handler_
	// States
	templateFile string
	getContext   func() map[string]string
}

// NewTemplateHandler fails fast when the template file doesn't exist;
// that is a deployment mistake, not a per-request condition.
func NewTemplateHandler(templateFile string, getContext func() map[string]string) (*TemplateHandler, error) {
	if info, err := os.Stat(templateFile); err != nil || !info.Mode().IsRegular() {
		return nil, ConfigErrorf("template file not found: `%s`", templateFile)
	}
	h := new(TemplateHandler)
	h.templateFile = templateFile
	h.getContext = getContext
	return h, nil
}

func (h *TemplateHandler) GetResponse(req *Request) (Response, error) {
	var context map[string]string
	if h.getContext != nil {
		context = h.getContext()
	}
	return NewTemplateResponse(h.templateFile, context)
}

func expandTemplate(source []byte, context map[string]string) ([]byte, error) {
	var content bytes.Buffer
	for i := 0; i < len(source); i++ {
		b := source[i]
		if b != '$' {
			content.WriteByte(b)
			continue
		}
		if i+1 < len(source) && source[i+1] == '$' {
			content.WriteByte('$')
			i++
			continue
		}
		name, next := scanVariable(source, i+1)
		if name == "" {
			content.WriteByte('$')
			continue
		}
		value, ok := context[name]
		if !ok {
			return nil, ConfigErrorf("template: missing substitution for variable `%s`", name)
		}
		content.WriteString(value)
		i = next - 1
	}
	return content.Bytes(), nil
}

// scanVariable reads a $name or ${name} variable starting at from and
// returns the name plus the index of the first byte after it.
func scanVariable(source []byte, from int) (name string, next int) {
	if from < len(source) && source[from] == '{' {
		for j := from + 1; j < len(source); j++ {
			if source[j] == '}' {
				return string(source[from+1 : j]), j + 1
			}
			if !isVariableByte(source[j]) {
				break
			}
		}
		return "", from
	}
	j := from
	for j < len(source) && isVariableByte(source[j]) {
		j++
	}
	if j == from {
		return "", from
	}
	return string(source[from:j]), j
}

func isVariableByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
