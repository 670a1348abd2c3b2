package client

import (
	"fmt"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
)

// ServerError wraps an `error` frame the server sent back for a request.
type ServerError struct {
	Code    protocol.ErrorCode
	Message string
	Details map[string]any
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TimeoutError is returned by Request when no reply arrives within the
// caller's timeout. The pending entry is popped either way; the socket
// stays up.
type TimeoutError struct {
	RequestType string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out waiting for a reply", e.RequestType)
}

// ErrNotConnected is returned by Send/Request when the client has no
// live connection and is not mid-reconnect.
type ErrNotConnected struct{}

func (e *ErrNotConnected) Error() string { return "client is not connected" }
