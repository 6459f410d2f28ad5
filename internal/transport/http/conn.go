package http

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/app"
)

var (
	errTransportClosed = errors.New("transport closed")
	errSendBufferFull  = errors.New("send buffer full")
)

const (
	sendBufferSize = 64
	writeTimeout   = 5 * time.Second
)

// wsTransport adapts a gorilla connection to app.Transport. All writes go
// through one writer goroutine; Send only hands the frame to the buffer and
// fails fast when the buffer is full, so a slow client is pruned instead of
// stalling a broadcast.
type wsTransport struct {
	conn      *websocket.Conn
	send      chan app.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	t := &wsTransport{
		conn: conn,
		send: make(chan app.Event, sendBufferSize),
		done: make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

func (t *wsTransport) writeLoop() {
	for {
		select {
		case ev := <-t.send:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := t.conn.WriteJSON(ev); err != nil {
				_ = t.Close()
				return
			}
		case <-t.done:
			return
		}
	}
}

func (t *wsTransport) Send(ev app.Event) error {
	select {
	case <-t.done:
		return errTransportClosed
	default:
	}
	select {
	case t.send <- ev:
		return nil
	case <-t.done:
		return errTransportClosed
	default:
		return errSendBufferFull
	}
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})
	return err
}
