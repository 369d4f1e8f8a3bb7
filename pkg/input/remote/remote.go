// Package remote feeds controllers from websocket clients.
//
// Every binary message is [slot:1][buttons:2], buttons are little-endian
// with bit i set for the pressed input.Control(i).
package remote

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/giongto35/retrorun/pkg/input"
	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 64
	pongTime       = 60 * time.Second
	pingTime       = pongTime * 9 / 10
	writeWait      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  256,
	WriteBufferSize: 256,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type Server struct {
	*input.State

	addr string
	log  *logger.Logger

	mu    sync.Mutex
	owner [input.MaxSlots]*websocket.Conn
}

func New(addr string, log *logger.Logger) *Server {
	return &Server{State: input.NewState(), addr: addr, log: log.Module("remote")}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/input", s.serve)
	return mux
}

// Run serves the clients until the context is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	s.log.Info().Msgf("Remote input: ws://%v/input", ln.Addr())
	if err = srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("upgrade")
		return
	}
	s.log.Info().Msgf("Controller connected: %v", r.RemoteAddr)
	defer func() {
		s.release(conn)
		_ = conn.Close()
		s.log.Info().Msgf("Controller disconnected: %v", r.RemoteAddr)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongTime))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongTime)) })

	done := make(chan struct{})
	defer close(done)
	go s.ping(conn, done)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("read")
			}
			return
		}
		if kind != websocket.BinaryMessage || len(data) < 3 {
			continue
		}
		slot := int(data[0])
		if slot >= input.MaxSlots {
			continue
		}
		s.mu.Lock()
		s.owner[slot] = conn
		s.mu.Unlock()
		s.Set(slot, uint32(binary.LittleEndian.Uint16(data[1:3])))
	}
}

func (s *Server) ping(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(pingTime)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// release drops the buttons of the slots last driven by the conn.
func (s *Server) release(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot, c := range s.owner {
		if c == conn {
			s.owner[slot] = nil
			s.Set(slot, 0)
		}
	}
}
