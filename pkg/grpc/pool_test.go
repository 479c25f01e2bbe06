package grpc

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestPool_ReusesConnectionPerTarget(t *testing.T) {
	p := NewPool()
	defer p.Close()

	var wg sync.WaitGroup
	conns := make([]*grpc.ClientConn, 20)
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := p.GetConnection("passthrough:///ledger:50051")
			if assert.NoError(t, err) {
				conns[i] = conn
			}
		}(i)
	}
	wg.Wait()
	for _, conn := range conns {
		assert.Same(t, conns[0], conn)
	}

	other, err := p.GetConnection("passthrough:///ledger:50052")
	require.NoError(t, err)
	assert.NotSame(t, conns[0], other)
	assert.Equal(t, 2, p.Len())
}

func TestPool_ReplacesClosedConnection(t *testing.T) {
	p := NewPool()
	defer p.Close()

	first, err := p.GetConnection("passthrough:///ledger:50051")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := p.GetConnection("passthrough:///ledger:50051")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestPool_Close(t *testing.T) {
	noop := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(ctx, method, req, reply, cc, opts...)
	}
	p := NewPool(WithInterceptor(noop), WithDialOptions(grpc.WithUserAgent("ledger-test")))

	_, err := p.GetConnection("passthrough:///ledger:50051")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.Zero(t, p.Len())
}
