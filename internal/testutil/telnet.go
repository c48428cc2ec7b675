package testutil

import (
	"bufio"
	"fmt"
	"net"
	"regexp"
	"strings"
	"testing"
	"time"
)

var ansiPattern = regexp.MustCompile("\033\\[[0-9;]*m")

// TelnetClient is a line-oriented client for driving the telnet front end.
type TelnetClient struct {
	conn    net.Conn
	reader  *bufio.Reader
	t       *testing.T
	pending string
}

// NewTelnetClient dials addr. The connection is closed when the test ends.
//
// Precondition: a server must be listening on addr.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &TelnetClient{conn: conn, reader: bufio.NewReader(conn), t: t}
}

// ReadUntil reads until the received text, with ANSI styling removed,
// contains substr. It returns the text through the match; anything after it
// is kept for the next call. It fails the test on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	tmp := make([]byte, 1024)
	for {
		text := ansiPattern.ReplaceAllString(c.pending, "")
		if idx := strings.Index(text, substr); idx >= 0 {
			end := idx + len(substr)
			c.pending = text[end:]
			return text[:end]
		}
		n, err := c.reader.Read(tmp)
		c.pending += string(tmp[:n])
		if err != nil && n == 0 {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, text, err)
		}
	}
}

// Send writes text followed by CRLF.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the connection.
func (c *TelnetClient) Close() {
	_ = c.conn.Close()
}
