package network

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fluentlang/fluent/internal/status"
)

// WSBus is a real-transport Bus over github.com/gorilla/websocket: Bind
// starts a listener accepting one inbound connection per peer, Send
// dials (and caches) an outbound connection per destination address.
// Frames are wire-encoded as a 4-byte big-endian channel-name length,
// the channel name, then the payload, all in one binary WebSocket
// message — mirroring the two-part "channel name, pickled tuple" frame
// shape directly, with an explicit length prefix instead of a
// delimiter since channel names and payloads are both arbitrary bytes.
type WSBus struct {
	endpoint string
	server   *http.Server

	mu    sync.Mutex
	peers map[string]*websocket.Conn

	inbound chan Frame
}

// NewWSBus constructs an unbound bus; call Bind before use.
func NewWSBus() *WSBus {
	return &WSBus{
		peers:   make(map[string]*websocket.Conn),
		inbound: make(chan Frame, 256),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Bind starts an HTTP listener on endpoint's host:port (endpoint must be
// a "ws://host:port" URL) and accepts inbound frames on "/" via
// WebSocket upgrade.
func (b *WSBus) Bind(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return status.Wrap(status.ConfigError, err, "wsbus: parse endpoint %q", endpoint)
	}
	if u.Scheme != "ws" {
		return status.New(status.ConfigError, "wsbus: endpoint %q must use ws:// scheme", endpoint)
	}
	b.endpoint = endpoint

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return status.Wrap(status.ConfigError, err, "wsbus: listen %q", u.Host)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", b.handleUpgrade)
	b.server = &http.Server{Handler: mux}
	go b.server.Serve(ln)
	return nil
}

func (b *WSBus) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	go b.readLoop(conn)
}

func (b *WSBus) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := decodeFrame(data)
		if err != nil {
			continue
		}
		b.inbound <- frame
	}
}

func (b *WSBus) connFor(dst string) (*websocket.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if conn, ok := b.peers[dst]; ok {
		return conn, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dst, nil)
	if err != nil {
		return nil, status.Wrap(status.NetworkError, err, "wsbus: dial %q", dst)
	}
	b.peers[dst] = conn
	go b.readLoop(conn)
	return conn, nil
}

// Send dials (or reuses) a connection to dst and writes frame as one
// binary WebSocket message.
func (b *WSBus) Send(dst string, frame Frame) error {
	conn, err := b.connFor(dst)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, encodeFrame(frame)); err != nil {
		return status.Wrap(status.NetworkError, err, "wsbus: send to %q", dst)
	}
	return nil
}

// Recv waits up to timeout for the next inbound frame from any peer.
func (b *WSBus) Recv(timeout time.Duration) (Frame, bool, error) {
	select {
	case f := <-b.inbound:
		return f, true, nil
	case <-time.After(timeout):
		return Frame{}, false, nil
	}
}

func encodeFrame(f Frame) []byte {
	nameBytes := []byte(f.ChannelName)
	out := make([]byte, 4+len(nameBytes)+len(f.Payload))
	binary.BigEndian.PutUint32(out[:4], uint32(len(nameBytes)))
	copy(out[4:], nameBytes)
	copy(out[4+len(nameBytes):], f.Payload)
	return out
}

func decodeFrame(data []byte) (Frame, error) {
	if len(data) < 4 {
		return Frame{}, fmt.Errorf("wsbus: frame too short")
	}
	n := binary.BigEndian.Uint32(data[:4])
	if uint32(len(data)) < 4+n {
		return Frame{}, fmt.Errorf("wsbus: truncated frame")
	}
	name := string(data[4 : 4+n])
	payload := data[4+n:]
	return Frame{ChannelName: name, Payload: payload}, nil
}
