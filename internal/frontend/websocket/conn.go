package websocket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cory-johannsen/wordrace/internal/hub"
	"github.com/cory-johannsen/wordrace/internal/observability"
	"github.com/cory-johannsen/wordrace/internal/protocol"
)

const closeWriteWait = time.Second

// serveConn runs one socket until the client goes away or the server stops.
//
// Postcondition: the connection has left every room and its outbox is closed.
func (s *Server) serveConn(ws *websocket.Conn, remoteAddr string) {
	defer ws.Close()

	id := uuid.NewString()
	client, err := s.coord.Connect(id)
	if err != nil {
		s.logger.Error("registering websocket connection", observability.Conn(id), zap.Error(err))
		return
	}
	s.logger.Info("websocket connected", observability.Conn(id), zap.String("remote_addr", remoteAddr))

	stop := context.AfterFunc(s.ctx, func() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		_ = ws.Close()
	})
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(ws, client)
	}()

	s.readLoop(ws, id)
	s.coord.Disconnect(id)
	<-done
	s.logger.Info("websocket disconnected", observability.Conn(id))
}

func (s *Server) extendRead(ws *websocket.Conn) error {
	if s.cfg.ReadTimeout <= 0 {
		return nil
	}
	return ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
}

func (s *Server) limiter() *rate.Limiter {
	if s.cfg.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
}

// readLoop decodes and dispatches frames until the socket fails.
func (s *Server) readLoop(ws *websocket.Conn, id string) {
	if s.cfg.MaxMessageBytes > 0 {
		ws.SetReadLimit(s.cfg.MaxMessageBytes)
	}
	_ = s.extendRead(ws)
	ws.SetPongHandler(func(string) error { return s.extendRead(ws) })
	limiter := s.limiter()

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Debug("websocket read failed", observability.Conn(id), zap.Error(err))
			}
			return
		}
		_ = s.extendRead(ws)

		if !limiter.Allow() {
			s.logger.Warn("websocket rate limit exceeded, event dropped", observability.Conn(id))
			continue
		}
		in, err := protocol.DecodeInbound(frame)
		if err != nil {
			s.coord.Reject(id, err)
			continue
		}
		if err := s.coord.Dispatch(id, in); err != nil {
			s.logger.Debug("event failed",
				observability.Conn(id), observability.Event(in.Kind.String()), zap.Error(err))
		}
	}
}

// writeLoop writes the outbox as text frames and keeps the socket alive with
// pings. It returns once the outbox is closed.
func (s *Server) writeLoop(ws *websocket.Conn, client *hub.Client) {
	var ping <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case ev, ok := <-client.Outbox():
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
				return
			}
			frame, err := protocol.EncodeOutbound(ev)
			if err != nil {
				s.logger.Error("encoding event",
					observability.Conn(client.ID()), observability.Event(ev.Name), zap.Error(err))
				continue
			}
			if err := s.write(ws, websocket.TextMessage, frame); err != nil {
				s.abandon(ws, client, err)
				return
			}
		case <-ping:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout())); err != nil {
				s.abandon(ws, client, err)
				return
			}
		}
	}
}

func (s *Server) writeTimeout() time.Duration {
	if s.cfg.WriteTimeout <= 0 {
		return 10 * time.Second
	}
	return s.cfg.WriteTimeout
}

func (s *Server) write(ws *websocket.Conn, messageType int, data []byte) error {
	if err := ws.SetWriteDeadline(time.Now().Add(s.writeTimeout())); err != nil {
		return err
	}
	return ws.WriteMessage(messageType, data)
}

// abandon closes a socket that can no longer be written and discards the
// rest of its outbox so pushes to it never back up.
func (s *Server) abandon(ws *websocket.Conn, client *hub.Client, err error) {
	s.logger.Debug("websocket write failed", observability.Conn(client.ID()), zap.Error(err))
	_ = ws.Close()
	for range client.Outbox() {
	}
}
