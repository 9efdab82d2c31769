package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client, err := New(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, Check(client)(context.Background()))

	mr.Close()
	require.Error(t, Check(client)(context.Background()))
}

func TestNewFailsWithoutServer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()
	_, err = New(context.Background(), Options{Addr: addr})
	require.Error(t, err)
}
