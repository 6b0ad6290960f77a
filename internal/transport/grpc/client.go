package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nadzzz/voicetone/internal/message"
)

// Client calls a voicetone.v1.Voice server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to addr without transport security.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Conn exposes the underlying connection, e.g. for health checks.
func (c *Client) Conn() *grpc.ClientConn { return c.conn }

func (c *Client) Open(ctx context.Context, req message.OpenRequest) (*message.SessionInfo, error) {
	out := new(message.SessionInfo)
	return out, c.conn.Invoke(ctx, "/"+ServiceName+"/Open", &req, out)
}

func (c *Client) Turn(ctx context.Context, req message.TurnRequest) (*message.TurnResult, error) {
	out := new(message.TurnResult)
	return out, c.conn.Invoke(ctx, "/"+ServiceName+"/Turn", &req, out)
}

func (c *Client) History(ctx context.Context, sessionID string) (*message.History, error) {
	out := new(message.History)
	return out, c.conn.Invoke(ctx, "/"+ServiceName+"/History", &SessionRequest{SessionID: sessionID}, out)
}

func (c *Client) Close(ctx context.Context, sessionID string) error {
	return c.conn.Invoke(ctx, "/"+ServiceName+"/Close", &SessionRequest{SessionID: sessionID}, &Empty{})
}

func (c *Client) Tones(ctx context.Context) (*message.ToneInfo, error) {
	out := new(message.ToneInfo)
	return out, c.conn.Invoke(ctx, "/"+ServiceName+"/Tones", &Empty{}, out)
}

// Shutdown closes the connection.
func (c *Client) Shutdown() error { return c.conn.Close() }
