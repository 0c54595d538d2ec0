// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrBadAck is returned when the server answers with anything but AckToken.
var ErrBadAck = errors.New("protocol: unexpected acknowledgment")

// DefaultConnectTimeout bounds the initial dial.
const DefaultConnectTimeout = 5 * time.Second

// TransportError is any failure of a protocol exchange. It ends the
// current processing session.
type TransportError struct {
	Op  string // "dial", "send", "ack"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is the sending side of the protocol. One command is outstanding
// at a time; Exchange blocks for the full round trip.
type Client struct {
	conn       net.Conn
	ackTimeout time.Duration
}

// NewClient wraps an established connection. ackTimeout of zero waits
// for acknowledgments indefinitely.
func NewClient(conn net.Conn, ackTimeout time.Duration) *Client {
	return &Client{conn: conn, ackTimeout: ackTimeout}
}

// Dial connects to addr ("host:port"), giving up after connectTimeout.
func Dial(ctx context.Context, addr string, connectTimeout, ackTimeout time.Duration) (*Client, error) {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	d := net.Dialer{Timeout: connectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return NewClient(conn, ackTimeout), nil
}

// Send encodes c and writes it in full.
func (c *Client) Send(cmd Command) error {
	b, err := Encode(cmd)
	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	for len(b) > 0 {
		n, err := c.conn.Write(b)
		if err != nil {
			return &TransportError{Op: "send", Err: err}
		}
		b = b[n:]
	}
	return nil
}

// WaitForAck reads one acknowledgment and reports whether it matched.
func (c *Client) WaitForAck() (bool, error) {
	if c.ackTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.ackTimeout)); err != nil {
			return false, &TransportError{Op: "ack", Err: err}
		}
		defer c.conn.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, AckReadSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return false, &TransportError{Op: "ack", Err: err}
	}
	return string(buf[:n]) == AckToken, nil
}

// Exchange sends cmd and waits for its acknowledgment. A mismatched
// token is a TransportError wrapping ErrBadAck.
func (c *Client) Exchange(cmd Command) error {
	if err := c.Send(cmd); err != nil {
		return err
	}
	ok, err := c.WaitForAck()
	if err != nil {
		return err
	}
	if !ok {
		return &TransportError{Op: "ack", Err: ErrBadAck}
	}
	return nil
}

func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Client) Close() error { return c.conn.Close() }
