package probes

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/healthops/health"
)

func TestTCPChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	addr := ln.Addr().String()

	c, err := NewTCPChecker(TCPConfig{Name: "redis", Address: addr})
	require.NoError(t, err)

	res := c.Check(context.Background())
	assert.Equal(t, health.StatusHealthy, res.Status, res.Message)
	assert.Equal(t, addr, res.Details["address"])

	require.NoError(t, ln.Close())
	res = c.Check(context.Background())
	assert.Equal(t, health.StatusUnhealthy, res.Status)
	assert.Contains(t, res.Message, "dial "+addr+" failed")
}

func TestNewTCPChecker_Validation(t *testing.T) {
	_, err := NewTCPChecker(TCPConfig{})
	assert.ErrorIs(t, err, ErrMissingParam)

	_, err = NewTCPChecker(TCPConfig{Address: "no-port"})
	assert.ErrorIs(t, err, ErrInvalidParam)
}
