package rsp

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeServer plays the gdbserver side of a session over an in-process pipe:
// it ACKs every inbound packet and, for each one, sends back the next
// scripted reply (framed and checksummed) if one is queued.
type fakeServer struct {
	t       *testing.T
	conn    net.Conn
	replies []string
}

func newFakeServer(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	srv := &fakeServer{t: t, conn: serverConn}
	c := newClientFromConn(clientConn)
	return c, srv
}

// queueReply schedules payload to be sent back framed as the reply to the
// next inbound packet the server receives.
func (s *fakeServer) queueReply(payload string) {
	s.replies = append(s.replies, payload)
}

// serveOne services exactly one inbound packet: acks it, and if a reply is
// queued, sends it framed. Meant to be run in its own goroutine per request.
func (s *fakeServer) serveOne() error {
	if err := readUntil(s.conn, '$'); err != nil {
		return err
	}
	if _, err := readPacketRaw(s.conn); err != nil {
		return err
	}
	if _, err := readN(s.conn, 2); err != nil { // checksum digits
		return err
	}
	if _, err := s.conn.Write([]byte{'+'}); err != nil {
		return err
	}
	if len(s.replies) > 0 {
		reply := s.replies[0]
		s.replies = s.replies[1:]
		if err := writeFramed(s.conn, reply); err != nil {
			return err
		}
		_, err := readN(s.conn, 1) // the client's ack of our reply
		return err
	}
	return nil
}

func (s *fakeServer) close() { s.conn.Close() }

func readUntil(conn net.Conn, target byte) error {
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			return err
		}
		if buf[0] == target {
			return nil
		}
	}
}

func readPacketRaw(conn net.Conn) (string, error) {
	var out []byte
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			return "", err
		}
		if buf[0] == '#' {
			return string(out), nil
		}
		out = append(out, buf[0])
	}
}

func readN(conn net.Conn, n int) ([]byte, error) {
	buf := make([]byte, n)
	total := 0
	for total < n {
		k, err := conn.Read(buf[total:])
		if err != nil {
			return nil, err
		}
		total += k
	}
	return buf, nil
}

func writeFramed(conn net.Conn, payload string) error {
	var cksum byte
	for i := 0; i < len(payload); i++ {
		cksum += payload[i]
	}
	frame := fmt.Sprintf("$%s#%02x", payload, cksum)
	_, err := conn.Write([]byte(frame))
	return err
}

func TestReadWordsSingleChunk(t *testing.T) {
	c, srv := newFakeServer(t)
	defer srv.close()
	defer c.Close()

	srv.queueReply("78563412efbeadde")
	done := make(chan error, 1)
	go func() { done <- srv.serveOne() }()

	words, err := c.ReadWords(0x20000000, 2)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, []uint32{0x12345678, 0xdeadbeef}, words)
}

func TestReadWordsRemoteError(t *testing.T) {
	c, srv := newFakeServer(t)
	defer srv.close()
	defer c.Close()

	srv.queueReply("E05")
	done := make(chan error, 1)
	go func() { done <- srv.serveOne() }()

	_, err := c.ReadWords(0x0, 1)
	require.NoError(t, <-done)
	var remErr *RemoteError
	require.ErrorAs(t, err, &remErr)
	require.Equal(t, 5, remErr.Code)
}

func TestWriteWordsChunking(t *testing.T) {
	c, srv := newFakeServer(t)
	defer srv.close()
	defer c.Close()

	if _, err := c.SetMaxWordsPerTransfer(1); err != nil {
		t.Fatalf("SetMaxWordsPerTransfer: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 2; i++ {
			srv.queueReply("OK")
			if err := srv.serveOne(); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	err := c.WriteWords(0x1000, []uint32{1, 2})
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestReadWriteReg(t *testing.T) {
	c, srv := newFakeServer(t)
	defer srv.close()
	defer c.Close()

	srv.queueReply("78563412")
	done := make(chan error, 1)
	go func() { done <- srv.serveOne() }()
	v, err := c.ReadReg(0)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, uint32(0x12345678), v)

	srv.queueReply("OK")
	done = make(chan error, 1)
	go func() { done <- srv.serveOne() }()
	err = c.WriteReg(15, 0x08000001)
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestInsertRemoveHWBreakpoint(t *testing.T) {
	c, srv := newFakeServer(t)
	defer srv.close()
	defer c.Close()

	srv.queueReply("OK")
	done := make(chan error, 1)
	go func() { done <- srv.serveOne() }()
	require.NoError(t, c.InsertHWBreakpoint(0x20000010, 2))
	require.NoError(t, <-done)

	srv.queueReply("OK")
	done = make(chan error, 1)
	go func() { done <- srv.serveOne() }()
	require.NoError(t, c.RemoveHWBreakpoint(0x20000010, 2))
	require.NoError(t, <-done)
}

func TestWaitHaltedIgnoresNonStopPackets(t *testing.T) {
	c, srv := newFakeServer(t)
	defer srv.close()
	defer c.Close()

	go func() {
		writeFramed(srv.conn, "Oaabbcc")
		readN(srv.conn, 1) // client's ack of the console packet
		writeFramed(srv.conn, "T05")
		readN(srv.conn, 1) // client's ack of the stop-reply packet
	}()

	reply, err := c.WaitHalted()
	require.NoError(t, err)
	require.Equal(t, "T05", reply)
}

func TestGetPacketRetriesOnChecksumMismatch(t *testing.T) {
	c, srv := newFakeServer(t)
	defer srv.close()
	defer c.Close()

	go func() {
		srv.conn.Write([]byte("$OK#00")) // wrong checksum
		readN(srv.conn, 1)               // the client's NAK
		writeFramed(srv.conn, "OK")
		readN(srv.conn, 1) // the client's ack of the valid reply
	}()

	reply, err := c.getPacket(true)
	require.NoError(t, err)
	require.Equal(t, "OK", reply)
}
