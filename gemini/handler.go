// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Handlers turn requests into responses.

package gemini

import (
	"errors"
	"io/fs"
)

// Handler produces a Response for requests routed to it. A handler owns no
// connection state and must be safe for concurrent use: its configuration is
// set once at construction and read-only afterward.
//
// A handler may return an error to signal failure; the connection engine
// converts it into the closest failure response and never lets it crash the
// connection.
type Handler interface {
	GetResponse(req *Request) (Response, error)
}

// Handler_ is the parent for built-in handlers.
type Handler_ struct {
}

// ResponseHandler adapts a fixed response into a Handler, for routes that
// always answer the same thing (prompts, redirects, canned failures).
type ResponseHandler struct {
	Handler_
	resp Response
}

func NewResponseHandler(resp Response) *ResponseHandler {
	return &ResponseHandler{resp: resp}
}

func (h *ResponseHandler) GetResponse(req *Request) (Response, error) {
	return h.resp, nil
}

// errorResponse maps a handler failure to the closest failure response.
// Missing or unreadable resources read as NOT FOUND so nothing is leaked
// about the file system; configuration faults and everything unexpected read
// as PERMANENT FAILURE.
func errorResponse(err error) Response {
	var cfgErr *ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return &PermanentFailureResponse{Reason: cfgErr.Error()}
	case errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission):
		return &NotFoundResponse{}
	default:
		return &PermanentFailureResponse{}
	}
}
