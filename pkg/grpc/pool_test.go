package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-stake-ledger/pkg/logger"
)

func TestPool_ReusesConnection(t *testing.T) {
	p := NewPool(WithContentSubtype("json"), WithLogger(logger.Discard()))
	defer p.Close()

	a, err := p.GetConnection("passthrough:///node-a")
	require.NoError(t, err)
	again, err := p.GetConnection("passthrough:///node-a")
	require.NoError(t, err)
	b, err := p.GetConnection("passthrough:///node-b")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
}

func TestPool_ReplacesClosedConnection(t *testing.T) {
	p := NewPool()
	defer p.Close()

	first, err := p.GetConnection("passthrough:///node")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := p.GetConnection("passthrough:///node")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}
