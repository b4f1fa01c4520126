package mpd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	okPrefix      = "OK"
	ackPrefix     = "ACK "
	maxLineLength = 64 * 1024
)

// ErrLineTooLong is returned when the daemon sends a line longer than maxLineLength
var ErrLineTooLong = errors.New("response line too long")

// Response is one complete reply of the player daemon.
// Lines keeps the raw text in arrival order, terminal line included.
type Response struct {
	Command string
	Lines   []string
}

// Get returns the value of the first "Key: Value" line matching key.
// The lookup is case-sensitive; ok is false when no line carries the key.
func (r *Response) Get(key string) (value string, ok bool) {
	if r == nil {
		return "", false
	}
	prefix := key + ": "
	for _, line := range r.Lines {
		if strings.HasPrefix(line, prefix) {
			return line[len(prefix):], true
		}
	}
	return "", false
}

// Err returns a *ProtocolError when the response ended with an ACK line
func (r *Response) Err() error {
	if r == nil || len(r.Lines) == 0 {
		return nil
	}
	last := r.Lines[len(r.Lines)-1]
	if strings.HasPrefix(last, ackPrefix) {
		return &ProtocolError{Command: r.Command, Line: last}
	}
	return nil
}

// ProtocolError reports a command rejected by the daemon
type ProtocolError struct {
	Command string
	Line    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("command %q rejected: %s", e.Command, e.Line)
}

func isTerminal(line string) bool {
	return strings.HasPrefix(line, okPrefix) || strings.HasPrefix(line, ackPrefix)
}

// conn frames commands and responses over one connection.
// Only one command may be outstanding at a time.
type conn struct {
	w io.Writer
	r *bufio.Reader
}

func newConn(rw io.ReadWriter) *conn {
	return &conn{w: rw, r: bufio.NewReader(rw)}
}

func (c *conn) send(command string) error {
	if _, err := io.WriteString(c.w, command+"\n"); err != nil {
		return fmt.Errorf("send %q: %w", command, err)
	}
	return nil
}

// readResponse accumulates lines until a terminal line arrives.
// A response cut short by an I/O error is discarded.
func (c *conn) readResponse(command string) (*Response, error) {
	resp := &Response{Command: command}
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, fmt.Errorf("read %q response: %w", command, err)
		}
		resp.Lines = append(resp.Lines, line)
		if isTerminal(line) {
			return resp, nil
		}
	}
}

// readLine returns one line without its terminator.
func (c *conn) readLine() (string, error) {
	var buf []byte
	for {
		chunk, err := c.r.ReadSlice('\n')
		if len(buf)+len(chunk) > maxLineLength+2 {
			return "", ErrLineTooLong
		}
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			return strings.TrimRight(string(buf), "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return "", err
		}
	}
}

func (c *conn) roundTrip(command string) (*Response, error) {
	if err := c.send(command); err != nil {
		return nil, err
	}
	return c.readResponse(command)
}
