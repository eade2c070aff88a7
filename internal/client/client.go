// Package client talks the fare-card protocol: one connection per request.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

const (
	DefaultTimeout    = 5 * time.Second
	DefaultBufferSize = 1024
)

type Client struct {
	Addr       string
	Timeout    time.Duration
	BufferSize int
	Dialer     *net.Dialer
}

func New(addr string, timeout time.Duration, bufferSize int) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Client{
		Addr:       addr,
		Timeout:    timeout,
		BufferSize: bufferSize,
		Dialer:     &net.Dialer{},
	}
}

// Send dials the server, writes request and returns the first chunk of
// the answer, at most BufferSize bytes.
func (c *Client) Send(ctx context.Context, request string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	conn, err := c.Dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", c.Addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(request)); err != nil {
		return "", fmt.Errorf("write request: %w", err)
	}

	buf := make([]byte, c.BufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(buf[:n]), nil
}

// Call is Send with failures rendered as the user-facing messages the
// command line prints.
func (c *Client) Call(ctx context.Context, request string) string {
	response, err := c.Send(ctx, request)
	if err != nil {
		return Describe(err)
	}
	return response
}

// Describe maps a Send error to a one-line message.
func Describe(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.As(err, &dnsErr) && !dnsErr.IsTimeout:
		return "Error: Failed to resolve the address."
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return "Error: Connection timed out"
	default:
		return fmt.Sprintf("Error: Failed to connect to the server. %v", err)
	}
}
