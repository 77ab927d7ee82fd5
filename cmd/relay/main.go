package main

import (
	"flag"
	"net"

	"github.com/sirupsen/logrus"

	"parley/internal/relay"
)

func main() {
	addr := flag.String("addr", ":7878", "listen address")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(*level); err == nil {
		logger.SetLevel(lvl)
	}

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.WithError(err).Fatal("listen")
	}
	logger.WithField("addr", l.Addr().String()).Info("relay listening")

	hub := relay.NewHub(logger)
	if err := hub.Serve(l); err != nil {
		logger.WithError(err).Fatal("serve")
	}
}
