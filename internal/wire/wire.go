// Package wire frames chat traffic as newline-delimited text lines over a
// net.Conn. Any transport that preserves message boundaries satisfies the
// chat core; this is the one the server ships with.
package wire

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// StopCode is the reserved line a peer sends to leave the chat. The server
// broadcasts it to every member on shutdown so well-behaved clients exit
// their own read loops before the connection is torn down.
const StopCode = "##STOP##"

// TransportError wraps every read/write/close fault so the session layer
// can treat all transport failures uniformly.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Conn is a line transport over a single TCP connection. Writes are
// serialized by an internal mutex so concurrent broadcasters cannot
// interleave partial lines, and each write carries a bounded deadline so a
// stalled peer fails instead of blocking the writer forever.
type Conn struct {
	nc           net.Conn
	r            *bufio.Reader
	w            *bufio.Writer
	writeTimeout time.Duration

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewConn(nc net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		nc:           nc,
		r:            bufio.NewReader(nc),
		w:            bufio.NewWriter(nc),
		writeTimeout: writeTimeout,
	}
}

// ReceiveLine blocks until the next full line arrives. A trailing line
// without a newline before EOF is still delivered.
func (c *Conn) ReceiveLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		return strings.TrimRight(line, "\r\n"), nil
	}
	return "", &TransportError{Op: "read", Err: err}
}

func (c *Conn) SendLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return &TransportError{Op: "write", Err: err}
		}
	}
	if _, err := c.w.WriteString(line + "\n"); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if err := c.w.Flush(); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Close shuts the underlying connection down exactly once; later calls
// return the first result. Closing unblocks any pending ReceiveLine.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if err := c.nc.Close(); err != nil {
			c.closeErr = &TransportError{Op: "close", Err: err}
		}
	})
	return c.closeErr
}

func (c *Conn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}
