// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// The Gemini server: TLS gate, accept loop, and the per-connection exchange.

package gemini

import (
	"bufio"
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures a Server. The zero value of each field picks the
// documented default. An Options value is consumed at NewServer time; the
// resulting server configuration is immutable.
type Options struct {
	IP                 string        // listening host/IP. default: localhost
	Port               int           // listening port. default: 1965. negative asks the kernel for an ephemeral port
	CertFile           string        // path to the TLS certificate. default: cert.pem
	KeyFile            string        // path to the TLS private key. default: key.pem
	Routes             []Route       // the route table. required
	Logger             Logger        // access/error logger. default: console
	HandshakeTimeout   time.Duration // TLS handshake deadline. default: 10s
	ReadTimeout        time.Duration // request line read deadline. default: 60s
	WriteTimeout       time.Duration // response write deadline. default: 60s
	MaxConcurrentConns int32         // connections above this are dropped. default: 10000
}

// Server is a Gemini server: one TLS gate plus a read-only route table.
// Create with NewServer, bind with Listen, then run Serve.
type Server struct {
	// Assocs
	router *Router
	logger Logger
	gate   *gate
	// States
	ip                 string
	port               int
	tlsConfig          *tls.Config
	handshakeTimeout   time.Duration
	readTimeout        time.Duration
	writeTimeout       time.Duration
	maxConcurrentConns int32
}

func NewServer(opts *Options) (*Server, error) {
	router, err := NewRouter(opts.Routes)
	if err != nil {
		return nil, err
	}
	s := new(Server)
	s.router = router

	s.ip = opts.IP
	if s.ip == "" {
		s.ip = "localhost"
	}
	switch {
	case opts.Port > 0:
		s.port = opts.Port
	case opts.Port == 0:
		s.port = Port
	default: // ephemeral, published by Listen
		s.port = 0
	}
	certFile := opts.CertFile
	if certFile == "" {
		certFile = "cert.pem"
	}
	keyFile := opts.KeyFile
	if keyFile == "" {
		keyFile = "key.pem"
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	s.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	s.logger = opts.Logger
	if s.logger == nil {
		s.logger = consoleLogger{}
	}
	s.handshakeTimeout = opts.HandshakeTimeout
	if s.handshakeTimeout == 0 {
		s.handshakeTimeout = 10 * time.Second
	}
	s.readTimeout = opts.ReadTimeout
	if s.readTimeout == 0 {
		s.readTimeout = 60 * time.Second
	}
	s.writeTimeout = opts.WriteTimeout
	if s.writeTimeout == 0 {
		s.writeTimeout = 60 * time.Second
	}
	s.maxConcurrentConns = opts.MaxConcurrentConns
	if s.maxConcurrentConns == 0 {
		s.maxConcurrentConns = 10000
	}
	return s, nil
}

func (s *Server) Address() string        { return net.JoinHostPort(s.ip, strconv.Itoa(s.port)) }
func (s *Server) Port() int              { return s.port }
func (s *Server) TLSConfig() *tls.Config { return s.tlsConfig }

// Listen opens the gate. With an ephemeral port the assigned one is
// published through Port() after Listen returns.
func (s *Server) Listen() error {
	gate := new(gate)
	gate.onNew(s)
	if err := gate.open(); err != nil {
		return err
	}
	s.gate = gate
	if tcpAddr, ok := gate.listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}
	return nil
}

// Serve runs the accept loop until Shut. The loop only accepts and
// dispatches; everything that can block belongs to the connection goroutines.
func (s *Server) Serve() { // runner
	s.logger.Logf("castor v%s serving gemini://%s\n", Version, s.Address())
	s.gate.serve()
	s.logger.Close()
}

// Shut closes the gate. In-flight exchanges finish naturally; each is
// bounded and short-lived, so nothing is forcibly terminated.
func (s *Server) Shut() {
	s.gate.shut()
}

// ListenAndServe is Listen then Serve.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.Serve()
	return nil
}

func (s *Server) dispatch(req *Request) (resp Response) {
	defer func() {
		if x := recover(); x != nil {
			s.logger.Logf("handler panic: %v\n", x)
			resp = &PermanentFailureResponse{}
		}
	}()
	prefix, handler, ok := s.router.FindHandler(req.Path())
	if !ok {
		return &NotFoundResponse{}
	}
	resp, err := handler.GetResponse(req.forRoute(prefix))
	if err != nil {
		if DebugLevel() >= 1 {
			Printf("handler error: %s\n", err.Error())
		}
		return errorResponse(err)
	}
	return resp
}

// gate is the opening gate of a Server.
type gate struct {
	// Assocs
	server *Server
	// States
	listener           *net.TCPListener
	isShut             atomic.Bool
	concurrentConns    atomic.Int32
	maxConcurrentConns int32
	subConns           sync.WaitGroup
}

func (g *gate) onNew(server *Server) {
	g.server = server
	g.maxConcurrentConns = server.maxConcurrentConns
	g.concurrentConns.Store(0)
}

func (g *gate) open() error {
	listener, err := net.Listen("tcp", g.server.Address())
	if err != nil {
		return err
	}
	g.listener = listener.(*net.TCPListener)
	return nil
}

func (g *gate) shut() {
	g.isShut.Store(true)
	g.listener.Close() // breaks serve()
}

func (g *gate) decConcurrentConns() int32 { return g.concurrentConns.Add(-1) }
func (g *gate) incConcurrentConns() int32 { return g.concurrentConns.Add(1) }
func (g *gate) reachLimit(concurrentConns int32) bool {
	return concurrentConns > g.maxConcurrentConns
}

func (g *gate) serve() { // runner
	connID := int64(1)
	for {
		tcpConn, err := g.listener.AcceptTCP()
		if err != nil {
			if g.isShut.Load() {
				break
			} else {
				continue
			}
		}
		g.subConns.Add(1)
		if concurrentConns := g.incConcurrentConns(); g.reachLimit(concurrentConns) {
			g.justClose(tcpConn)
			continue
		}
		conn := getConn(connID, g, tcpConn)
		go conn.serve() // conn is put back to the pool in serve()
		connID++
	}
	g.subConns.Wait()
	if DebugLevel() >= 2 {
		Println("gate done")
	}
}

func (g *gate) justClose(netConn net.Conn) {
	netConn.Close()
	g.decConcurrentConns()
	g.subConns.Done()
}

// conn is one accepted connection: exactly one request/response exchange,
// then close. Conns are pooled.
type conn struct {
	// Assocs
	gate *gate
	// States
	id      int64
	tlsConn *tls.Conn
	peer    string
}

var poolConn sync.Pool

func getConn(id int64, gate *gate, tcpConn *net.TCPConn) *conn {
	var c *conn
	if x := poolConn.Get(); x == nil {
		c = new(conn)
	} else {
		c = x.(*conn)
	}
	c.onGet(id, gate, tcpConn)
	return c
}
func putConn(c *conn) {
	c.onPut()
	poolConn.Put(c)
}

func (c *conn) onGet(id int64, gate *gate, tcpConn *net.TCPConn) {
	c.gate = gate
	c.id = id
	c.tlsConn = tls.Server(tcpConn, gate.server.tlsConfig)
	c.peer = tcpConn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(c.peer); err == nil {
		c.peer = host
	}
}
func (c *conn) onPut() {
	c.gate = nil
	c.tlsConn = nil
	c.peer = ""
}

// serve walks one connection through the exchange: handshake, request line,
// dispatch, response write, close. Closing happens on every exit path.
func (c *conn) serve() { // runner
	server := c.gate.server
	logger := server.logger
	gate := c.gate
	defer func() {
		c.tlsConn.Close()
		gate.decConcurrentConns()
		gate.subConns.Done()
		putConn(c)
	}()

	// Nothing is sent before TLS establishes a secure channel. A failed
	// handshake aborts the connection with no response.
	if c.tlsConn.SetDeadline(time.Now().Add(server.handshakeTimeout)) != nil || c.tlsConn.Handshake() != nil {
		logger.Logf("%s handshake failed\n", c.peer)
		return
	}

	c.tlsConn.SetReadDeadline(time.Now().Add(server.readTimeout))
	line, resp, err := c.readRequestLine()
	if err != nil {
		logger.Logf("%s read error: %s\n", c.peer, err.Error()) // transport error, no response
		return
	}
	if resp == nil {
		if req, err := parseRequest(line, c.peer, server.port); err != nil {
			if protoErr, ok := err.(*protocolError); ok {
				resp = protoErr.response()
			} else {
				resp = &BadRequestResponse{}
			}
		} else {
			resp = server.dispatch(req)
		}
	}

	payload := MarshalResponse(resp)
	c.tlsConn.SetWriteDeadline(time.Now().Add(server.writeTimeout))
	if _, err := c.tlsConn.Write(payload); err != nil {
		logger.Logf("%s write error: %s\n", c.peer, err.Error())
		return
	}
	logger.Logln(accessLine(c.peer, line, resp.Status(), resp.Meta(), len(payload)))
}

// readRequestLine reads bytes until CRLF or LF, bounded by the protocol's
// URL size limit. Bare LF is tolerated on read; the terminator is stripped.
// A protocol violation (oversized line, missing terminator) comes back as a
// ready error response; err is reserved for genuine transport faults.
func (c *conn) readRequestLine() (line string, errResp Response, err error) {
	// The buffer is larger than any legal line, so ErrBufferFull can only
	// mean an oversized request.
	reader := bufio.NewReaderSize(c.tlsConn, MaxURLSize+64)
	data, err := reader.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return "", &BadRequestResponse{Reason: "url too long"}, nil
	}
	if err == io.EOF {
		if len(data) == 0 { // peer closed without sending anything
			return "", nil, io.ErrUnexpectedEOF
		}
		return "", &BadRequestResponse{Reason: "unterminated request line"}, nil
	}
	if err != nil {
		return "", nil, err
	}
	n := len(data) - 1 // drop the '\n'
	if n > 0 && data[n-1] == '\r' {
		n--
	}
	if n > MaxURLSize {
		return "", &BadRequestResponse{Reason: "url too long"}, nil
	}
	return string(data[:n]), nil, nil
}
