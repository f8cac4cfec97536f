package remote

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/statecore/internal/engines"
)

// ServicePath prefixes every engine RPC method.
const ServicePath = "/statecore.engine.v1.EngineService/"

// #region invoker
// Invoker is the unary-call slice of a gRPC connection.
type Invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// #endregion invoker

// #region client-struct
// Client wraps the gRPC connection to an out-of-process engine service.
// Requests and responses are google.protobuf.Struct messages.
type Client struct {
	conn    *grpc.ClientConn
	inv     Invoker
	addr    string
	timeout time.Duration
}

// #endregion client-struct

// #region constructor
// NewClient creates a client for addr. The connection is established lazily.
func NewClient(addr string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, inv: conn, addr: addr, timeout: timeout}, nil
}

// NewClientWithInvoker creates a Client over an injected invoker.
// Used for testing without a real gRPC connection.
func NewClientWithInvoker(inv Invoker, addr string, timeout time.Duration) *Client {
	return &Client{inv: inv, addr: addr, timeout: timeout}
}

// Dial creates a client and, when probe is positive, waits up to probe for
// the connection to become ready.
func Dial(addr string, timeout, probe time.Duration) (*Client, error) {
	c, err := NewClient(addr, timeout)
	if err != nil {
		return nil, err
	}
	if probe <= 0 {
		return c, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), probe)
	defer cancel()
	if err := c.WaitReady(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Dialer adapts Dial for engine resolution.
func Dialer(timeout, probe time.Duration) engines.Dialer {
	return func(addr string) (engines.Remote, error) {
		c, err := Dial(addr, timeout, probe)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// #endregion constructor

// #region lifecycle
// Addr returns the service address.
func (c *Client) Addr() string {
	return c.addr
}

// WaitReady blocks until the connection is ready, fails, or ctx ends.
func (c *Client) WaitReady(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	c.conn.Connect()
	for {
		st := c.conn.GetState()
		switch st {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure, connectivity.Shutdown:
			return fmt.Errorf("%w: %s is %s", engines.ErrUnreachable, c.addr, st)
		}
		if !c.conn.WaitForStateChange(ctx, st) {
			return fmt.Errorf("%w: %s: %w", engines.ErrUnreachable, c.addr, ctx.Err())
		}
	}
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion lifecycle

// #region call
// call sends in to method and returns the decoded response. Unavailable
// services are retried with backoff.
func (c *Client) call(method string, in map[string]any) (map[string]any, error) {
	req, err := structpb.NewStruct(toWireMap(in))
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	resp := &structpb.Struct{}
	for attempt := 1; ; attempt++ {
		err = c.invoke(method, req, resp)
		if !shouldRetry(err, attempt) {
			break
		}
		time.Sleep(backoff(attempt))
		resp.Reset()
	}
	if err != nil {
		return nil, fmt.Errorf("%s rpc: %w", method, err)
	}
	return resp.AsMap(), nil
}

// invoke makes one attempt under the per-call timeout.
func (c *Client) invoke(method string, req, resp *structpb.Struct) error {
	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.inv.Invoke(ctx, ServicePath+method, req, resp)
}

// #endregion call
