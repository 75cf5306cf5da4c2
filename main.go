// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Castor server. Serves a directory tree over the Gemini protocol.

package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hexinfra/castor/gemini"

	_ "github.com/hexinfra/castor/exts/kafkalog" // registers the "kafka" logger
)

var (
	ip       = flag.String("ip", "localhost", "IP/host to listen on")
	port     = flag.Int("port", gemini.Port, "port to listen on")
	certFile = flag.String("certfile", "cert.pem", "path to the TLS certificate")
	keyFile  = flag.String("keyfile", "key.pem", "path to the TLS private key")
	rootDir  = flag.String("root", ".", "root directory to serve")
	index    = flag.String("index", "index.gmi", "index file name for directory paths")
	listing  = flag.Bool("listing", true, "generate directory listings when the index file is absent")
	logSpec  = flag.String("logger", "console", "logger: noop, console, file:/path/to.log, kafka:broker/topic")
	debug    = flag.Int("debug", 0, "debug level")
	version  = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *version {
		gemini.Println(gemini.Version)
		return
	}
	gemini.SetDebugLevel(int32(*debug))

	logger := createLogger(*logSpec)

	static, err := gemini.NewStaticHandler(*rootDir, *listing, *index)
	if err != nil {
		gemini.UseExitln(err.Error())
	}

	server, err := gemini.NewServer(&gemini.Options{
		IP:       *ip,
		Port:     *port,
		CertFile: *certFile,
		KeyFile:  *keyFile,
		Routes: []gemini.Route{
			{Prefix: "", Handler: static},
		},
		Logger: logger,
	})
	if err != nil {
		gemini.EnvExitln(err.Error())
	}
	if err := server.Listen(); err != nil {
		gemini.EnvExitln(err.Error())
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		server.Shut()
	}()

	server.Serve()
}

func createLogger(spec string) gemini.Logger {
	sign, target, _ := strings.Cut(spec, ":")
	logger, err := gemini.CreateLogger(sign, &gemini.LogConfig{Target: target})
	if err != nil {
		gemini.UseExitln(err.Error())
	}
	return logger
}
