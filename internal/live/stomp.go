package live

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// stompVersions is offered in CONNECT; the server picks one.
	stompVersions = "1.2,1.1"

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	maxFrameBytes    = 1 << 20
)

// StompDialer connects to a STOMP broker over a WebSocket.
type StompDialer struct {
	// URL is the WebSocket endpoint, e.g. ws://localhost:8080/ws-chat/websocket.
	URL string
	// Header is sent with the WebSocket upgrade request. Optional.
	Header http.Header
	// HeartBeat is both the interval the client offers to send heart-beats at
	// and the interval it asks the server for. Zero disables heart-beats.
	HeartBeat time.Duration
	// Dialer overrides websocket.DefaultDialer. Optional.
	Dialer *websocket.Dialer

	Log zerolog.Logger
}

var _ Dialer = (*StompDialer)(nil)

// Dial opens the WebSocket and performs the CONNECT/CONNECTED handshake.
func (d *StompDialer) Dial(ctx context.Context) (Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", d.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	ws.SetReadLimit(maxFrameBytes)

	c := &stompConn{ws: ws, log: d.Log, done: make(chan struct{})}

	hb := strconv.FormatInt(d.HeartBeat.Milliseconds(), 10)
	connect := frame.New(frame.CONNECT,
		frame.AcceptVersion, stompVersions,
		frame.Host, u.Hostname(),
		frame.HeartBeat, hb+","+hb,
	)
	if err := c.write(connect); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("send CONNECT: %w", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(handshakeTimeout))
	f, err := c.readFrame()
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("read CONNECTED: %w", err)
	}

	switch f.Command {
	case frame.CONNECTED:
	case frame.ERROR:
		_ = ws.Close()
		return nil, fmt.Errorf("broker rejected connect: %s", errorText(f))
	default:
		_ = ws.Close()
		return nil, fmt.Errorf("unexpected %s frame during handshake", f.Command)
	}

	send, recv := negotiateHeartBeat(d.HeartBeat, f.Header.Get(frame.HeartBeat))
	c.readTimeout = recv
	if recv > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(recv))
	} else {
		_ = ws.SetReadDeadline(time.Time{})
	}
	if send > 0 {
		go c.heartBeat(send)
	}

	d.Log.Debug().
		Str("version", f.Header.Get(frame.Version)).
		Dur("send_heartbeat", send).
		Dur("recv_heartbeat", recv).
		Msg("stomp session established")

	return c, nil
}

// stompConn is a STOMP session on one WebSocket. gorilla allows a single
// concurrent writer, so writes are serialized by writeMu.
type stompConn struct {
	ws          *websocket.Conn
	log         zerolog.Logger
	readTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func (c *stompConn) Subscribe(id, destination string) error {
	return c.write(frame.New(frame.SUBSCRIBE,
		frame.Id, id,
		frame.Destination, destination,
		frame.Ack, "auto",
	))
}

func (c *stompConn) Unsubscribe(id string) error {
	return c.write(frame.New(frame.UNSUBSCRIBE, frame.Id, id))
}

func (c *stompConn) Publish(destination string, body []byte) error {
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, "application/json",
	)
	f.Body = body
	return c.write(f)
}

func (c *stompConn) Receive() (Delivery, error) {
	for {
		f, err := c.readFrame()
		if err != nil {
			return Delivery{}, err
		}
		if f == nil {
			continue // heart-beat
		}

		switch f.Command {
		case frame.MESSAGE:
			return Delivery{
				Subscription: f.Header.Get(frame.Subscription),
				Destination:  f.Header.Get(frame.Destination),
				Body:         f.Body,
			}, nil
		case frame.ERROR:
			return Delivery{}, fmt.Errorf("broker error: %s", errorText(f))
		default:
			c.log.Debug().Str("command", f.Command).Msg("ignoring frame")
		}
	}
}

// Close sends DISCONNECT and closes the socket.
func (c *stompConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.write(frame.New(frame.DISCONNECT))

		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

// readFrame returns the next frame, or nil for a heart-beat.
func (c *stompConn) readFrame() (*frame.Frame, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.readTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	f, err := frame.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

func (c *stompConn) write(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return fmt.Errorf("encode %s frame: %w", f.Command, err)
	}
	return c.writeRaw(buf.Bytes())
}

func (c *stompConn) writeRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *stompConn) heartBeat(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.writeRaw([]byte("\n")); err != nil {
				c.log.Debug().Err(err).Msg("heart-beat failed")
				return
			}
		}
	}
}

// negotiateHeartBeat applies the STOMP heart-beat rules to the client's
// offer and the server's heart-beat header. The receive timeout is padded
// to tolerate network jitter.
func negotiateHeartBeat(client time.Duration, serverHeader string) (send, recv time.Duration) {
	if client <= 0 || serverHeader == "" {
		return 0, 0
	}

	sx, sy, ok := strings.Cut(serverHeader, ",")
	if !ok {
		return 0, 0
	}
	serverSend, err1 := strconv.ParseInt(strings.TrimSpace(sx), 10, 64)
	serverWants, err2 := strconv.ParseInt(strings.TrimSpace(sy), 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0
	}

	if serverWants > 0 {
		send = max(client, time.Duration(serverWants)*time.Millisecond)
	}
	if serverSend > 0 {
		recv = max(client, time.Duration(serverSend)*time.Millisecond) * 3
	}
	return send, recv
}

func errorText(f *frame.Frame) string {
	msg := f.Header.Get(frame.Message)
	body := strings.TrimSpace(string(f.Body))
	switch {
	case msg != "" && body != "":
		return msg + ": " + body
	case msg != "":
		return msg
	case body != "":
		return body
	default:
		return "no details"
	}
}
