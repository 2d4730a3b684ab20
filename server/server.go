/*
Copyright © 2026 the Spresso authors.
This file is part of Spresso.

Spresso is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Spresso is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Spresso.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package server exposes simulation controllers over websockets.
//
// Each websocket connection gets its own controller. Clients send JSON
// commands such as {"msg":"start"} and receive controller events as JSON
// frames. Prometheus metrics are served at /metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spressosim/spresso/controller"
)

// MaxMessageSize is the largest command frame that will be read.
const MaxMessageSize = 1 << 20

// ackMsg is sent by some clients after each update. It is ignored.
const ackMsg = "updated"

// Server is an http.Handler that runs one simulation controller per
// websocket connection.
type Server struct {
	// Log receives connection and controller logs.
	Log logrus.FieldLogger

	// ControllerOptions are applied to every new controller.
	ControllerOptions []controller.Option

	// WriteTimeout bounds the time taken to write one event.
	WriteTimeout time.Duration

	metrics  *controller.Metrics
	metricsH http.Handler
	upgrader websocket.Upgrader

	wg sync.WaitGroup
}

// NewServer creates a server whose metrics are registered with reg. A new
// registry is created if reg is nil.
func NewServer(reg *prometheus.Registry) *Server {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return &Server{
		Log:          logrus.StandardLogger(),
		WriteTimeout: 10 * time.Second,
		metrics:      controller.NewMetrics(reg),
		metricsH:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1 << 16,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := s.Log.WithFields(logrus.Fields{
		"url":  r.URL.String(),
		"addr": r.RemoteAddr,
	})
	switch {
	case websocket.IsWebSocketUpgrade(r):
		log.Info("spresso websocket request")
		s.serveSocket(w, r, log)
	case r.URL.Path == "/metrics":
		s.metricsH.ServeHTTP(w, r)
	case r.URL.Path == "/":
		fmt.Fprintln(w, "spresso: connect with a websocket client and send {\"msg\":\"reset\",\"input\":{...}}")
	default:
		http.NotFound(w, r)
	}
}

// Wait blocks until every connection handled by s has closed.
func (s *Server) Wait() { s.wg.Wait() }

// conn serializes writes to a websocket connection.
type conn struct {
	ws      *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex
}

func (c *conn) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return c.ws.WriteJSON(v)
}

func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger) {
	s.wg.Add(1)
	defer s.wg.Done()
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("spresso: websocket upgrade failed")
		return
	}
	defer ws.Close()
	ws.SetReadLimit(MaxMessageSize)
	c := &conn{ws: ws, timeout: s.WriteTimeout}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := append([]controller.Option{
		controller.WithLogger(log),
		controller.WithMetrics(s.metrics),
	}, s.ControllerOptions...)
	ctrl := controller.New(opts...)
	go ctrl.Run(ctx)

	written := make(chan struct{})
	go func() {
		defer close(written)
		for e := range ctrl.Events() {
			if err := c.write(e); err != nil {
				log.WithError(err).Debug("spresso: writing event")
				cancel()
			}
		}
	}()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("spresso: websocket closed")
			}
			break
		}
		if err := s.command(ctrl, msg); err != nil {
			log.WithError(err).Warn("spresso: bad command")
			if werr := c.write(controller.Event{Type: controller.EventError, Error: err.Error()}); werr != nil {
				break
			}
		}
	}
	cancel()
	<-written
	log.Info("spresso websocket closed")
}

func (s *Server) command(ctrl *controller.Controller, msg []byte) error {
	var cmd controller.Command
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return fmt.Errorf("decoding command: %v", err)
	}
	if cmd.Msg == ackMsg {
		return nil
	}
	err := ctrl.Send(cmd)
	if errors.Is(err, controller.ErrStopped) {
		return nil
	}
	return err
}
