package core

import "errors"

var (
	// ErrClientClosed is returned when sending to or registering a closed client.
	ErrClientClosed = errors.New("client closed")
	// ErrSlowConsumer is returned when a client's outbound queue is full.
	ErrSlowConsumer = errors.New("slow consumer")
	// ErrHubClosed is returned when registering after the hub was shut down.
	ErrHubClosed = errors.New("hub closed")
)

// CloseKind tells how a connection left the Open state.
type CloseKind int

const (
	// ClosePeer means the peer closed the connection normally (close frame or EOF).
	ClosePeer CloseKind = iota
	// CloseTransport means a read, write or protocol error ended the connection.
	CloseTransport
	// CloseShutdown means the server drained the connection.
	CloseShutdown
)

func (k CloseKind) String() string {
	switch k {
	case ClosePeer:
		return "peer_closed"
	case CloseTransport:
		return "transport_error"
	case CloseShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
