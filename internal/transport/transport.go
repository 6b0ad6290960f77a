// Package transport defines the interface for pluggable session transports.
//
// Each transport (HTTP/WebSocket, gRPC) exposes the same Service to its
// clients. The service doesn't care how requests arrive.
package transport

import (
	"context"

	"github.com/nadzzz/voicetone/internal/message"
)

// Service is what transports expose. *dispatch.Dispatcher implements it.
type Service interface {
	// Open starts a new session.
	Open(ctx context.Context, req message.OpenRequest) (*message.SessionInfo, error)

	// Turn runs one recording. The result may be non-nil alongside an error
	// and then describes how far the turn got.
	Turn(ctx context.Context, req message.TurnRequest) (*message.TurnResult, error)

	// History lists a session's turns, most recent first.
	History(ctx context.Context, sessionID string) (*message.History, error)

	// Close discards a session.
	Close(ctx context.Context, sessionID string) error

	// Tones lists the configured tones.
	Tones(ctx context.Context) *message.ToneInfo
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and hands them to svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
