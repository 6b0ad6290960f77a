// Package grpc implements the gRPC transport for voicetone.
//
// The server exposes the standard grpc.health.v1 service and the
// voicetone.v1.Voice service. Voice messages are the JSON wire types from
// package message, carried with the "json" content subtype, so clients need
// no generated stubs: they call with grpc.CallContentSubtype("json").
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/voicetone/internal/dispatch"
	"github.com/nadzzz/voicetone/internal/message"
	"github.com/nadzzz/voicetone/internal/transport"
)

// ServiceName is the fully qualified name of the voice service.
const ServiceName = "voicetone.v1.Voice"

// SessionRequest addresses an existing session.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// Empty is the response of calls that return nothing.
type Empty struct{}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming calls to svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis, svc)
}

// Serve runs the server on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, svc transport.Service) error {
	t.server = grpc.NewServer()
	t.server.RegisterService(&serviceDesc, svc)

	t.health = health.NewServer()
	healthpb.RegisterHealthServer(t.server, t.health)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.health.Shutdown()
		t.server.GracefulStop()
	}
	return nil
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*transport.Service)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Open", Handler: unary("Open", func(ctx context.Context, svc transport.Service, req *message.OpenRequest) (any, error) {
			return svc.Open(ctx, *req)
		})},
		{MethodName: "Turn", Handler: unary("Turn", turn)},
		{MethodName: "History", Handler: unary("History", func(ctx context.Context, svc transport.Service, req *SessionRequest) (any, error) {
			return svc.History(ctx, req.SessionID)
		})},
		{MethodName: "Close", Handler: unary("Close", func(ctx context.Context, svc transport.Service, req *SessionRequest) (any, error) {
			return &Empty{}, svc.Close(ctx, req.SessionID)
		})},
		{MethodName: "Tones", Handler: unary("Tones", func(ctx context.Context, svc transport.Service, _ *Empty) (any, error) {
			return svc.Tones(ctx), nil
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voicetone/v1/voice.proto",
}

// turn answers with the partial result when the session exists, so the
// client sees how far the turn got. Error carries the failure.
func turn(ctx context.Context, svc transport.Service, req *message.TurnRequest) (any, error) {
	res, err := svc.Turn(ctx, *req)
	if res != nil {
		return res, nil
	}
	return nil, err
}

func unary[Req any](method string, call func(context.Context, transport.Service, *Req) (any, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		handler := func(ctx context.Context, req any) (any, error) {
			out, err := call(ctx, srv.(transport.Service), req.(*Req))
			if err != nil {
				return nil, toStatus(err)
			}
			return out, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, handler)
	}
}

func toStatus(err error) error {
	var code codes.Code
	switch dispatch.StatusCode(err) {
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	case http.StatusUnprocessableEntity:
		code = codes.FailedPrecondition
	case http.StatusGatewayTimeout:
		code = codes.DeadlineExceeded
	default:
		code = codes.Unavailable
	}
	return status.Error(code, err.Error())
}
