package rsp

import (
	"bufio"
	"io"
	"net"
	"time"
)

// readTimeout bounds a single refill of the receive buffer. The reference
// gdbserver is not expected to go quiet for anywhere near this long once a
// session is established; this mostly guards against a target that has
// wedged or a network path that has gone dark.
const readTimeout = 300*time.Second + 100*time.Millisecond

const dialTimeout = 10 * time.Second

// deadlineReader arms a fresh read deadline on the underlying connection
// before every read, so a bufio.Reader built on top of it behaves like a
// single-socket readiness wait with a timeout rather than a blocking read
// that can hang forever.
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (d *deadlineReader) Read(p []byte) (int, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, &CommError{Op: "set read deadline", Err: err}
	}
	n, err := d.conn.Read(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, ErrReadTimeout
		}
		if err == io.EOF {
			return n, ErrConnectionShutdown
		}
		return n, &CommError{Op: "recv", Err: err}
	}
	if n == 0 {
		return n, ErrConnectionShutdown
	}
	return n, nil
}

// transport owns the TCP socket to a gdbserver instance and the byte-level
// buffering on top of it. The receive side refills in bounded chunks via
// deadlineReader; the transmit side is staged in a bufio.Writer and only
// hits the wire on Flush, mirroring the stage-then-flush shape of the
// reference implementation's send_char/txsync pair.
type transport struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

func dial(addr string) (*transport, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, &CommError{Op: "dial " + addr, Err: err}
	}
	return newTransport(conn), nil
}

// newTransport wraps an already-established connection. Split out from
// dial so tests can drive a Client over an in-process net.Pipe instead of a
// real socket.
func newTransport(conn net.Conn) *transport {
	return &transport{
		conn: conn,
		r:    bufio.NewReaderSize(&deadlineReader{conn: conn, timeout: readTimeout}, 512),
		w:    bufio.NewWriterSize(conn, 512),
	}
}

func (t *transport) close() error {
	return t.conn.Close()
}

func (t *transport) readByte() (byte, error) {
	return t.r.ReadByte()
}

func (t *transport) writeByte(b byte) error {
	return t.w.WriteByte(b)
}

func (t *transport) flush() error {
	if err := t.w.Flush(); err != nil {
		return &CommError{Op: "send", Err: err}
	}
	return nil
}

// buffered reports how many bytes are already staged in the receive buffer
// without touching the network.
func (t *transport) buffered() int {
	return t.r.Buffered()
}

func (t *transport) discardBuffered() {
	if n := t.r.Buffered(); n > 0 {
		t.r.Discard(n)
	}
}
