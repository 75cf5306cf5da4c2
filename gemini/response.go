// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Gemini responses and their wire serialization.

package gemini

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const ( // status codes
	StatusInput               int16 = 10 // meta is a prompt
	StatusSensitiveInput      int16 = 11 // meta is a prompt, input must not be echoed
	StatusSuccess             int16 = 20 // meta is a mimetype, body follows
	StatusRedirect            int16 = 30 // meta is the target URL
	StatusPermanentRedirect   int16 = 31 // meta is the target URL
	StatusTemporaryFailure    int16 = 40 // meta is a reason
	StatusPermanentFailure    int16 = 50 // meta is a reason
	StatusNotFound            int16 = 51 // meta is a reason
	StatusProxyRequestRefused int16 = 53 // this server doesn't proxy
	StatusBadRequest          int16 = 59 // meta is a reason
)

const ( // default meta phrases
	geminiType       = "text/gemini"
	defaultType      = geminiType + "; charset=utf-8"
	textNotFound     = "NOT FOUND"
	textPermFailure  = "PERMANENT FAILURE"
	textTempFailure  = "TEMPORARY FAILURE"
	textProxyRefused = "PROXY REQUEST REFUSED"
	textBadRequest   = "BAD REQUEST"
	defaultIndexFile = "index.gmi"
	octetStreamType  = "application/octet-stream"
)

// Response is one Gemini response. Every concrete variant fixes its own
// status code, so an unclassified status can't be sent by accident.
type Response interface {
	Status() int16 // two digits
	Meta() string  // mimetype for 2x, prompt for 1x, target for 3x, reason for the rest
	Body() []byte  // nil if the response has no body
}

// MarshalResponse produces the wire form: "<status> <meta>\r\n" then the
// body. Text bodies are CRLF-normalized; binary success bodies are written
// verbatim.
func MarshalResponse(resp Response) []byte {
	meta := resp.Meta()
	head := fmt.Sprintf("%d %s\r\n", resp.Status(), meta)
	body := resp.Body()
	if len(body) == 0 {
		return []byte(head)
	}
	if resp.Status() == StatusSuccess && !strings.HasPrefix(meta, "text/") {
		return append([]byte(head), body...)
	}
	return append([]byte(head), normalizeCRLF(body)...)
}

// normalizeCRLF rewrites every bare LF or CR to CRLF and guarantees the
// content ends with one. The wire format never mixes terminator styles.
func normalizeCRLF(content []byte) []byte {
	normalized := make([]byte, 0, len(content)+2)
	for i := 0; i < len(content); i++ {
		switch b := content[i]; b {
		case '\r':
			normalized = append(normalized, '\r', '\n')
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
		case '\n':
			normalized = append(normalized, '\r', '\n')
		default:
			normalized = append(normalized, b)
		}
	}
	if !bytes.HasSuffix(normalized, []byte("\r\n")) {
		normalized = append(normalized, '\r', '\n')
	}
	return normalized
}

// InputResponse asks the client for an input line. Status code: 10.
type InputResponse struct {
	Prompt string
}

func (r *InputResponse) Status() int16 { return StatusInput }
func (r *InputResponse) Meta() string  { return r.Prompt }
func (r *InputResponse) Body() []byte  { return nil }

// SensitiveInputResponse asks for an input line that must not be echoed
// back by the client. Status code: 11.
type SensitiveInputResponse struct {
	Prompt string
}

func (r *SensitiveInputResponse) Status() int16 { return StatusSensitiveInput }
func (r *SensitiveInputResponse) Meta() string  { return r.Prompt }
func (r *SensitiveInputResponse) Body() []byte  { return nil }

// SuccessResponse carries arbitrary content. Status code: 20.
type SuccessResponse struct {
	MimeType string // empty means text/gemini; charset=utf-8
	Content  []byte
}

func (r *SuccessResponse) Status() int16 { return StatusSuccess }
func (r *SuccessResponse) Meta() string {
	if r.MimeType == "" {
		return defaultType
	}
	return r.MimeType
}
func (r *SuccessResponse) Body() []byte { return r.Content }

// TextResponse renders a gemini text page from a title and a body.
type TextResponse struct {
	content []byte
}

func NewTextResponse(title string, body string) *TextResponse {
	var lines []string
	if title != "" {
		lines = append(lines, "# "+title, "")
	}
	if body != "" {
		lines = append(lines, body)
	}
	var b bytes.Buffer
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return &TextResponse{content: b.Bytes()}
}

func (r *TextResponse) Status() int16 { return StatusSuccess }
func (r *TextResponse) Meta() string  { return defaultType }
func (r *TextResponse) Body() []byte {
	if len(r.content) == 0 {
		return nil
	}
	return r.content
}

// DocumentResponse is the content of a file under a root directory.
// Status code: 20, mimetype derived from the file extension.
type DocumentResponse struct {
	mimeType string
	content  []byte
}

// NewDocumentResponse reads fullPath, refusing any path whose canonical form
// escapes rootDir. Escapes and unreadable files surface as fs.ErrNotExist so
// nothing is leaked about the file system.
func NewDocumentResponse(fullPath string, rootDir string) (*DocumentResponse, error) {
	openPath, _, err := containPath(fullPath, rootDir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(openPath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, os.ErrNotExist
	}
	content, err := os.ReadFile(openPath)
	if err != nil {
		return nil, os.ErrNotExist
	}
	return &DocumentResponse{mimeType: mimeTypeByExtension(openPath), content: content}, nil
}

func (r *DocumentResponse) Status() int16 { return StatusSuccess }
func (r *DocumentResponse) Meta() string  { return r.mimeType }
func (r *DocumentResponse) Body() []byte  { return r.content }

// DirectoryListingResponse is a generated gemini page enumerating the
// entries of a directory under a root directory.
type DirectoryListingResponse struct {
	content []byte
}

func NewDirectoryListingResponse(fullPath string, rootDir string) (*DirectoryListingResponse, error) {
	listPath, absRoot, err := containPath(fullPath, rootDir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(listPath)
	if err != nil || !info.IsDir() {
		return nil, os.ErrNotExist
	}
	entries, err := os.ReadDir(listPath)
	if err != nil {
		return nil, os.ErrNotExist
	}
	relativePath := strings.TrimPrefix(listPath, absRoot)
	relativePath = strings.TrimSuffix(relativePath, "/")
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Directory listing for `%s`\r\n\r\n", relativePath)
	for _, name := range names {
		fmt.Fprintf(&b, "=> %s/%s\r\n", relativePath, name)
	}
	return &DirectoryListingResponse{content: b.Bytes()}, nil
}

func (r *DirectoryListingResponse) Status() int16 { return StatusSuccess }
func (r *DirectoryListingResponse) Meta() string  { return defaultType }
func (r *DirectoryListingResponse) Body() []byte  { return r.content }

// RedirectResponse is a temporary redirect. Status code: 30.
type RedirectResponse struct {
	target string
}

func NewRedirectResponse(target string) (*RedirectResponse, error) {
	if target == "" {
		return nil, NewConfigError("redirect: empty target")
	}
	return &RedirectResponse{target: target}, nil
}

func (r *RedirectResponse) Status() int16 { return StatusRedirect }
func (r *RedirectResponse) Meta() string  { return r.target }
func (r *RedirectResponse) Body() []byte  { return nil }

// PermanentRedirectResponse is a permanent redirect. Status code: 31.
type PermanentRedirectResponse struct {
	target string
}

func NewPermanentRedirectResponse(target string) (*PermanentRedirectResponse, error) {
	if target == "" {
		return nil, NewConfigError("redirect: empty target")
	}
	return &PermanentRedirectResponse{target: target}, nil
}

func (r *PermanentRedirectResponse) Status() int16 { return StatusPermanentRedirect }
func (r *PermanentRedirectResponse) Meta() string  { return r.target }
func (r *PermanentRedirectResponse) Body() []byte  { return nil }

// TemporaryFailureResponse. Status code: 40.
type TemporaryFailureResponse struct {
	Reason string
}

func (r *TemporaryFailureResponse) Status() int16 { return StatusTemporaryFailure }
func (r *TemporaryFailureResponse) Meta() string {
	if r.Reason == "" {
		return textTempFailure
	}
	return r.Reason
}
func (r *TemporaryFailureResponse) Body() []byte { return nil }

// PermanentFailureResponse. Status code: 50.
type PermanentFailureResponse struct {
	Reason string
}

func (r *PermanentFailureResponse) Status() int16 { return StatusPermanentFailure }
func (r *PermanentFailureResponse) Meta() string {
	if r.Reason == "" {
		return textPermFailure
	}
	return r.Reason
}
func (r *PermanentFailureResponse) Body() []byte { return nil }

// NotFoundResponse. Status code: 51.
type NotFoundResponse struct {
	Reason string
}

func (r *NotFoundResponse) Status() int16 { return StatusNotFound }
func (r *NotFoundResponse) Meta() string {
	if r.Reason == "" {
		return textNotFound
	}
	return r.Reason
}
func (r *NotFoundResponse) Body() []byte { return nil }

// ProxyRequestRefusedResponse. Status code: 53. The proxying feature itself
// is not implemented; this is the answer to anyone asking for it.
type ProxyRequestRefusedResponse struct{}

func (r *ProxyRequestRefusedResponse) Status() int16 { return StatusProxyRequestRefused }
func (r *ProxyRequestRefusedResponse) Meta() string  { return textProxyRefused }
func (r *ProxyRequestRefusedResponse) Body() []byte  { return nil }

// BadRequestResponse. Status code: 59.
type BadRequestResponse struct {
	Reason string
}

func (r *BadRequestResponse) Status() int16 { return StatusBadRequest }
func (r *BadRequestResponse) Meta() string {
	if r.Reason == "" {
		return textBadRequest
	}
	return r.Reason
}
func (r *BadRequestResponse) Body() []byte { return nil }

// containPath canonicalizes fullPath and verifies it still lies under
// rootDir. The check runs on the resolved absolute path, not the textual
// one, so neither ".." sequences nor symlinks can escape the root.
func containPath(fullPath string, rootDir string) (openPath string, absRoot string, err error) {
	absRoot, err = filepath.Abs(rootDir)
	if err != nil {
		return "", "", os.ErrNotExist
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", "", os.ErrNotExist
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	} else {
		return "", "", os.ErrNotExist
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", "", os.ErrNotExist
	}
	return absPath, absRoot, nil
}
