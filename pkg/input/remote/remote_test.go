package remote

import (
	"encoding/binary"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giongto35/retrorun/pkg/input"
	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/gorilla/websocket"
)

func msg(slot byte, controls ...input.Control) []byte {
	var bits uint16
	for _, c := range controls {
		bits |= 1 << c
	}
	b := []byte{slot, 0, 0}
	binary.LittleEndian.PutUint16(b[1:], bits)
	return b
}

func eventually(t *testing.T, what string, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !fn() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout: %v", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRemoteControllers(t *testing.T) {
	s := New(":0", logger.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/input"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}

	down := func(slot int, c input.Control) func() bool {
		return func() bool { s.Poll(); return s.IsControlDown(slot, c) }
	}

	if err = conn.WriteMessage(websocket.BinaryMessage, msg(1, input.A, input.Escape)); err != nil {
		t.Fatal(err)
	}
	eventually(t, "A down", down(1, input.A))
	if !s.IsControlDown(1, input.Escape) {
		t.Errorf("escape is not down")
	}
	if s.IsControlDown(0, input.A) {
		t.Errorf("wrong slot")
	}

	released := s.WaitUntilReleased(1, input.Escape)
	if err = conn.WriteMessage(websocket.BinaryMessage, msg(1, input.A)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("no release")
	}

	// a bad slot and a short message are ignored
	_ = conn.WriteMessage(websocket.BinaryMessage, msg(9, input.B))
	_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0})

	_ = conn.Close()
	eventually(t, "buttons released on disconnect", func() bool { return !down(1, input.A)() })
}
