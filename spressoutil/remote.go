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

package spressoutil

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spressosim/spresso"
	"github.com/spressosim/spresso/controller"
	"github.com/spressosim/spresso/server"
)

// Serve runs a simulation server on addr until it fails.
func Serve(addr string) error {
	log := logrus.StandardLogger()
	s := server.NewServer(nil)
	s.Log = log

	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	log.Infof("listening on %s", addr)
	return srv.ListenAndServe()
}

// Remote runs in on the server at url and returns the retrieved results.
// Connection attempts are retried for up to retry.
func Remote(ctx context.Context, url string, in *spresso.Input, retry time.Duration, log logrus.FieldLogger) (*spresso.Result, error) {
	var ws *websocket.Conn
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = retry
	err := backoff.RetryNotify(
		func() error {
			var err error
			ws, _, err = websocket.DefaultDialer.Dial(url, nil)
			return err
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			log.Warnf("%v: retrying in %v", err, d)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("spresso: connecting to %s: %v", url, err)
	}
	defer ws.Close()

	// Unblock reads on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()

	c := &remote{ws: ws, log: log}
	if err := c.send(controller.Command{Msg: controller.CmdReset, Input: in}); err != nil {
		return nil, err
	}
	for {
		e, err := c.next()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		switch e.Type {
		case controller.EventInit:
			log.WithField("backend", e.Backend).Info("spresso: connected")
		case controller.EventUpdate:
			if e.Snapshot.Seq == 0 {
				if err := c.send(controller.Command{Msg: controller.CmdStart}); err != nil {
					return nil, err
				}
				log.WithField("run", e.Snapshot.Run).Info("spresso: started")
				continue
			}
			log.WithFields(logrus.Fields{
				"run": e.Snapshot.Run,
				"t":   e.Snapshot.Time,
			}).Info("spresso: update")
		case controller.EventFinished:
			if err := c.send(controller.Command{Msg: controller.CmdRetrieve}); err != nil {
				return nil, err
			}
		case controller.EventData:
			c.close()
			return e.Bundle.Result()
		case controller.EventInvalid:
			return nil, fmt.Errorf("spresso: invalid input: %s", fieldList(e.Fields))
		case controller.EventError:
			return nil, fmt.Errorf("spresso: remote simulation failed: %s", e.Error)
		}
	}
}

// remote is the client side of a websocket connection to a server.
type remote struct {
	ws  *websocket.Conn
	log logrus.FieldLogger
}

func (r *remote) send(cmd controller.Command) error {
	if err := r.ws.WriteJSON(cmd); err != nil {
		return fmt.Errorf("spresso: sending %s: %v", cmd.Msg, err)
	}
	return nil
}

func (r *remote) next() (controller.Event, error) {
	var e controller.Event
	if err := r.ws.ReadJSON(&e); err != nil {
		return e, fmt.Errorf("spresso: reading event: %v", err)
	}
	return e, nil
}

func (r *remote) close() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := r.ws.WriteMessage(websocket.CloseMessage, msg); err != nil {
		r.log.WithError(err).Debug("spresso: closing connection")
	}
}

func fieldList(fields map[string]string) string {
	var s []string
	for k, v := range fields {
		s = append(s, k+": "+v)
	}
	sort.Strings(s)
	return strings.Join(s, "; ")
}
