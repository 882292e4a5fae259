package protocol

import (
	"errors"
	"net"
	"os"
	"strings"
)

// Kind classifies every error surfaced by SteadyRedis.
type Kind uint8

const (
	KindUnknown      Kind = iota
	KindConnectivity      // opening or using the transport connection failed
	KindProtocol          // the server rejected the command
	KindTimeout           // nothing arrived within the requested window
	KindPrecondition      // the caller invoked an operation in an invalid state
	KindDescription       // fixed library failure described by text only
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindProtocol:
		return "protocol"
	case KindTimeout:
		return "timeout"
	case KindPrecondition:
		return "precondition"
	case KindDescription:
		return "description"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by the guardian, the registry and the client.
// The transport cause, when there is one, stays reachable through errors.As.
type Error struct {
	Cause       error
	Description string
	Kind        Kind
}

func (e *Error) Error() string {
	switch {
	case e.Description != "" && e.Cause != nil:
		return e.Description + ": " + e.Cause.Error()
	case e.Cause != nil:
		return e.Cause.Error()
	case e.Description != "":
		return e.Description
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinels of the same kind. A sentinel carrying a description
// only matches errors with that exact description.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Description == "" || t.Description == e.Description
}

var (
	// ErrConnectivity matches every connectivity error.
	ErrConnectivity = &Error{Kind: KindConnectivity}
	// ErrProtocol matches every error reply from the server.
	ErrProtocol = &Error{Kind: KindProtocol}
	// ErrTimeout matches every timeout.
	ErrTimeout = &Error{Kind: KindTimeout}

	// ErrNoSubscriptions is returned when fetching with an empty registry.
	ErrNoSubscriptions = &Error{Kind: KindPrecondition, Description: "no subscriptions defined"}
	// ErrReadTimeout is returned when the read deadline could not be applied.
	ErrReadTimeout = &Error{Kind: KindDescription, Description: "unable to set read timeout"}
	// ErrConnectionUnavailable is returned when no connection is held after acquisition.
	ErrConnectionUnavailable = &Error{Kind: KindDescription, Description: "connection not available"}
	// ErrParse is returned when a reply cannot be converted to the requested type.
	ErrParse = &Error{Kind: KindDescription, Description: "unable to parse output value"}

	// ErrNil is returned by typed reply conversions when the server replied nil,
	// for example GET on a missing key.
	ErrNil = errors.New("nil reply")
)

// Connectivity wraps a transport failure to open or use a connection.
func Connectivity(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: KindConnectivity, Cause: cause}
}

// Protocol wraps an error reply returned by the server.
func Protocol(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: KindProtocol, Cause: cause}
}

// Timeout builds a timeout error, keeping the underlying cause when known.
func Timeout(cause error) error {
	return &Error{Kind: KindTimeout, Description: "timeout", Cause: cause}
}

// KindOf reports the kind of err, or KindUnknown when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTimeout reports whether err is a SteadyRedis timeout. An unclassified
// error counts when it is a network deadline expiry. A classified error of any
// other kind never does, whatever it wraps.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindTimeout
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsConnectivity reports whether err is a connectivity error.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// IsAuthFailure reports whether err is an authentication rejection from the
// server. These poison the connection they arrived on.
func IsAuthFailure(err error) bool {
	if err == nil || !errors.Is(err, ErrProtocol) {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"NOAUTH", "WRONGPASS", "ERR invalid password", "ERR AUTH"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
