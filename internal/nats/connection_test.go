package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Connect(ctx, nil, nil)
	assert.EqualError(t, err, "connection config cannot be nil")

	_, err = Connect(ctx, DefaultConnectionConfig(""), nil)
	assert.EqualError(t, err, "NATS URL cannot be empty")
}

func TestConnectUnreachable(t *testing.T) {
	cfg := DefaultConnectionConfig("nats://127.0.0.1:1")
	cfg.Timeout = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Connect(ctx, cfg, nil)
	assert.Error(t, err)
	assert.Nil(t, conn)
	assert.False(t, IsConnected(conn))
	assert.NoError(t, Close(nil))
}

func TestConnect(t *testing.T) {
	url := os.Getenv("MODELCHAIN_TEST_NATS_URL")
	if url == "" {
		t.Skip("MODELCHAIN_TEST_NATS_URL not set")
	}
	conn, err := Connect(context.Background(), DefaultConnectionConfig(url), nil)
	require.NoError(t, err)
	assert.True(t, IsConnected(conn))
	assert.NoError(t, Close(conn))
}
