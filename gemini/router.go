// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// The route table maps URL path prefixes to handlers.

package gemini

// Route binds one URL path prefix to a handler. The empty prefix is the
// catch-all, matching any path that nothing else matched.
type Route struct {
	Prefix  string
	Handler Handler
}

// Router is the route table, built once at startup and read-only afterward,
// so concurrent connections read it without synchronization.
type Router struct {
	routes   []Route // non-empty prefixes, registration order kept
	catchAll Handler // the "" route, nil if not registered
}

func NewRouter(routes []Route) (*Router, error) {
	if len(routes) == 0 {
		return nil, NewConfigError("router: empty route table")
	}
	router := new(Router)
	seen := make(map[string]bool, len(routes))
	for _, route := range routes {
		if route.Handler == nil {
			return nil, ConfigErrorf("router: nil handler for prefix %q", route.Prefix)
		}
		if seen[route.Prefix] {
			return nil, ConfigErrorf("router: duplicate prefix %q", route.Prefix)
		}
		seen[route.Prefix] = true
		if route.Prefix == "" {
			router.catchAll = route.Handler
		} else {
			router.routes = append(router.routes, route)
		}
	}
	return router, nil
}

// FindHandler selects the longest registered prefix that the path starts
// with, falling back to the catch-all. A miss is a normal outcome, not an
// error.
//
// Matching is a plain string-prefix test, not a segment-boundary one, so
// sibling prefixes sharing text (like "/test" and "/test2") resolve to the
// longest string match. This mirrors the long-standing table semantics;
// deployments depend on it.
func (r *Router) FindHandler(path string) (prefix string, handler Handler, ok bool) {
	best := -1
	for i, route := range r.routes {
		if len(route.Prefix) > len(path) || path[:len(route.Prefix)] != route.Prefix {
			continue
		}
		if best == -1 || len(route.Prefix) > len(r.routes[best].Prefix) {
			best = i
		}
	}
	if best >= 0 {
		return r.routes[best].Prefix, r.routes[best].Handler, true
	}
	if r.catchAll != nil {
		return "", r.catchAll, true
	}
	return "", nil, false
}
