// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Gemini requests: one URL line per connection.

package gemini

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxURLSize is the protocol bound on the request URL, terminator excluded.
const MaxURLSize = 1024

// Request is the parsed request line plus the peer address, created once per
// connection and never mutated afterward.
type Request struct {
	raw         string   // request line, terminator stripped
	u           *url.URL // parsed absolute URL
	peer        string   // peer address, for logging
	routePrefix string   // the route prefix that matched, set by the engine
}

func (r *Request) Raw() string         { return r.raw }
func (r *Request) URL() *url.URL       { return r.u }
func (r *Request) Path() string        { return r.u.Path }
func (r *Request) Input() string       { return r.u.RawQuery } // the input answer, if any
func (r *Request) Peer() string        { return r.peer }
func (r *Request) RoutePrefix() string { return r.routePrefix }

// forRoute returns a copy bound to the matched route prefix. The original
// request stays untouched.
func (r *Request) forRoute(prefix string) *Request {
	bound := *r
	bound.routePrefix = prefix
	return &bound
}

type protocolError struct {
	status int16  // StatusBadRequest or StatusProxyRequestRefused
	reason string // for bad requests only
}

func (e *protocolError) Error() string { return e.reason }

// response renders the violation as the reply the client gets.
func (e *protocolError) response() Response {
	if e.status == StatusProxyRequestRefused {
		return &ProxyRequestRefusedResponse{}
	}
	return &BadRequestResponse{Reason: e.reason}
}

func badRequest(reason string) *protocolError {
	return &protocolError{status: StatusBadRequest, reason: reason}
}

var errProxyRefused = &protocolError{status: StatusProxyRequestRefused}

// parseRequest validates one request line against the protocol rules and
// builds a Request. Violations come back as *protocolError; the connection
// turns them into 59 or 53 responses instead of transport faults.
func parseRequest(line string, peer string, serverPort int) (*Request, error) {
	if line == "" {
		return nil, badRequest("empty request")
	}
	if len(line) > MaxURLSize {
		return nil, badRequest("url too long")
	}
	if !utf8.ValidString(line) {
		return nil, badRequest("invalid encoding")
	}
	if !strings.HasPrefix(line, "gemini://") {
		if scheme, _, ok := strings.Cut(line, "://"); ok {
			if strings.EqualFold(scheme, "gemini") { // a case variant is malformed, not foreign
				return nil, badRequest("bad scheme")
			}
			return nil, errProxyRefused // some other scheme. we don't proxy
		}
		return nil, badRequest("missing scheme")
	}
	u, err := url.Parse(line)
	if err != nil {
		return nil, badRequest("unparsable url")
	}
	if u.Scheme != "gemini" {
		return nil, errProxyRefused
	}
	if port := u.Port(); port != "" {
		if p, err := strconv.Atoi(port); err != nil || p != serverPort {
			return nil, errProxyRefused
		}
	}
	return &Request{raw: line, u: u, peer: peer}, nil
}
